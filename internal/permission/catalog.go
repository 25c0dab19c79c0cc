// Package permission converts between persisted capability maps and the
// ordered capability descriptors used when editing admins and employees.
package permission

import "loyalty-admin/internal/models"

// Key is a capability identifier as stored in a principal's permission map.
type Key string

const (
	ManageAdmins      Key = "manageAdmins"
	ManageCompanies   Key = "manageCompanies"
	ManageEmployees   Key = "manageEmployees"
	ManageCustomers   Key = "manageCustomers"
	ManageBanners     Key = "manageBanners"
	ManageFAQs        Key = "manageFaqs"
	ManageTerms       Key = "manageTerms"
	ManageSEO         Key = "manageSeo"
	ManageSettings    Key = "manageSettings"
	ManageOffers      Key = "manageOffers"
	RedeemPoints      Key = "redeemPoints"
	ViewReports       Key = "viewReports"
	SendNotifications Key = "sendNotifications"
)

// Descriptor describes one capability of a catalog.
type Descriptor struct {
	Key         Key    `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Catalog is a fixed, ordered set of capabilities. Nil entries are tolerated
// and skipped by every operation.
type Catalog []*Descriptor

// AdminCatalog lists the capabilities an admin principal can hold.
var AdminCatalog = Catalog{
	{Key: ManageAdmins, Name: "Admins", Description: "Create, edit and remove console admins"},
	{Key: ManageCompanies, Name: "Companies", Description: "Manage partner companies and their branches"},
	{Key: ManageEmployees, Name: "Employees", Description: "Manage company employees"},
	{Key: ManageCustomers, Name: "Customers", Description: "View and edit loyalty customers"},
	{Key: ManageBanners, Name: "Banners", Description: "Manage home screen banners"},
	{Key: ManageFAQs, Name: "FAQs", Description: "Manage frequently asked questions"},
	{Key: ManageTerms, Name: "Terms", Description: "Edit terms and conditions"},
	{Key: ManageSEO, Name: "SEO", Description: "Edit page SEO metadata"},
	{Key: ManageSettings, Name: "Settings", Description: "Change platform settings"},
	{Key: SendNotifications, Name: "Notifications", Description: "Send push notifications to customers"},
}

// EmployeeCatalog lists the capabilities a company employee can hold.
var EmployeeCatalog = Catalog{
	{Key: ManageCustomers, Name: "Customers", Description: "View and edit loyalty customers"},
	{Key: ManageOffers, Name: "Offers", Description: "Publish and retire company offers"},
	{Key: RedeemPoints, Name: "Redeem points", Description: "Redeem customer points at the counter"},
	{Key: ViewReports, Name: "Reports", Description: "View company loyalty reports"},
	{Key: ManageBanners, Name: "Banners", Description: "Manage company banners"},
	{Key: SendNotifications, Name: "Notifications", Description: "Send push notifications to customers"},
}

// ForPrincipal returns the catalog of a principal kind.
func ForPrincipal(kind models.PrincipalKind) (Catalog, bool) {
	switch kind {
	case models.PrincipalAdmin:
		return AdminCatalog, true
	case models.PrincipalEmployee:
		return EmployeeCatalog, true
	default:
		return nil, false
	}
}

// Lookup finds the descriptor of key.
func (c Catalog) Lookup(key Key) (Descriptor, bool) {
	for _, d := range c {
		if d != nil && d.Key == key {
			return *d, true
		}
	}
	return Descriptor{}, false
}

// Keys returns the catalog keys in order.
func (c Catalog) Keys() []Key {
	keys := make([]Key, 0, len(c))
	for _, d := range c {
		if d != nil {
			keys = append(keys, d.Key)
		}
	}
	return keys
}

// Len counts the non-nil descriptors.
func (c Catalog) Len() int {
	n := 0
	for _, d := range c {
		if d != nil {
			n++
		}
	}
	return n
}
