package seed

import (
	"fmt"
	"math"
	"math/rand"
)

type Supplier struct {
	SupplierID  int    `db:"supplier_id"`
	CompanyName string `db:"company_name"`
	ContactName string `db:"contact_name"`
	City        string `db:"city"`
	Country     string `db:"country"`
	Phone       string `db:"phone"`
}

type Product struct {
	ProductID    int     `db:"product_id"`
	SupplierID   int     `db:"supplier_id"`
	ProductName  string  `db:"product_name"`
	Category     string  `db:"category"`
	UnitPrice    float64 `db:"unit_price"`
	UnitsInStock int     `db:"units_in_stock"`
	Discontinued bool    `db:"discontinued"`
}

var suppliers = []Supplier{
	{CompanyName: "Exotic Liquids", ContactName: "Charlotte Cooper", City: "London", Country: "UK"},
	{CompanyName: "New Orleans Cajun Delights", ContactName: "Shelley Burke", City: "New Orleans", Country: "USA"},
	{CompanyName: "Grandma Kelly's Homestead", ContactName: "Regina Murphy", City: "Ann Arbor", Country: "USA"},
	{CompanyName: "Tokyo Traders", ContactName: "Yoshi Nagase", City: "Tokyo", Country: "Japan"},
	{CompanyName: "Cooperativa de Quesos 'Las Cabras'", ContactName: "Antonio del Valle Saavedra", City: "Oviedo", Country: "Spain"},
	{CompanyName: "Mayumi's", ContactName: "Mayumi Ohno", City: "Osaka", Country: "Japan"},
	{CompanyName: "Pavlova, Ltd.", ContactName: "Ian Devling", City: "Melbourne", Country: "Australia"},
	{CompanyName: "Specialty Biscuits, Ltd.", ContactName: "Peter Wilson", City: "Manchester", Country: "UK"},
	{CompanyName: "PB Knäckebröd AB", ContactName: "Lars Peterson", City: "Göteborg", Country: "Sweden"},
	{CompanyName: "Refrescos Americanas LTDA", ContactName: "Carlos Diaz", City: "Sao Paulo", Country: "Brazil"},
	{CompanyName: "Heli Süßwaren GmbH & Co. KG", ContactName: "Petra Winkler", City: "Berlin", Country: "Germany"},
	{CompanyName: "Plutzer Lebensmittelgroßmärkte AG", ContactName: "Martin Bein", City: "Frankfurt", Country: "Germany"},
	{CompanyName: "Nord-Ost-Fisch Handelsgesellschaft mbH", ContactName: "Sven Petersen", City: "Cuxhaven", Country: "Germany"},
	{CompanyName: "Formaggi Fortini s.r.l.", ContactName: "Elio Rossi", City: "Ravenna", Country: "Italy"},
	{CompanyName: "Norske Meierier", ContactName: "Beate Vileid", City: "Sandvika", Country: "Norway"},
	{CompanyName: "Bigfoot Breweries", ContactName: "Cheryl Saylor", City: "Bend", Country: "USA"},
	{CompanyName: "Svensk Sjöföda AB", ContactName: "Michael Björn", City: "Stockholm", Country: "Sweden"},
	{CompanyName: "Aux joyeux ecclésiastiques", ContactName: "Guylène Nodier", City: "Paris", Country: "France"},
	{CompanyName: "Ma Maison", ContactName: "Jean-Guy Lauzon", City: "Montréal", Country: "Canada"},
	{CompanyName: "G'day, Mate", ContactName: "Wendy Mackenzie", City: "Sydney", Country: "Australia"},
}

var categories = map[string][]string{
	"Beverages":      {"Chai", "Chang", "Lager", "Sasquatch Ale", "Steeleye Stout", "Côte de Blaye", "Ipoh Coffee"},
	"Condiments":     {"Aniseed Syrup", "Cajun Seasoning", "Gumbo Mix", "Boysenberry Spread", "Cranberry Sauce", "Vegie-spread"},
	"Confections":    {"Pavlova", "Teatime Chocolate Biscuits", "Sir Rodney's Scones", "Schoggi Schokolade", "Chocolade"},
	"Dairy Products": {"Queso Cabrales", "Queso Manchego", "Gorgonzola Telino", "Mascarpone Fabioli", "Geitost"},
	"Grains/Cereals": {"Gustaf's Knäckebröd", "Tunnbröd", "Singaporean Hokkien Fried Mee", "Filo Mix", "Ravioli Angelo"},
	"Meat/Poultry":   {"Mishi Kobe Niku", "Alice Mutton", "Thüringer Rostbratwurst", "Perth Pasties", "Pâté chinois"},
	"Produce":        {"Uncle Bob's Organic Dried Pears", "Tofu", "Rössle Sauerkraut", "Manjimup Dried Apples"},
	"Seafood":        {"Ikura", "Konbu", "Carnarvon Tigers", "Nord-Ost Matjeshering", "Inlagd Sill", "Gravad lax"},
}

var categoryNames = []string{"Beverages", "Condiments", "Confections", "Dairy Products", "Grains/Cereals", "Meat/Poultry", "Produce", "Seafood"}

// Catalog is one deterministic data set: the same seed always yields the
// same rows.
type Catalog struct {
	Suppliers []Supplier
	Products  []Product
}

type Generator struct {
	rnd                 *rand.Rand
	productsPerSupplier int
}

func NewGenerator(seed int64, productsPerSupplier int) *Generator {
	return &Generator{
		rnd:                 rand.New(rand.NewSource(seed)),
		productsPerSupplier: productsPerSupplier,
	}
}

func (g *Generator) Catalog() Catalog {
	catalog := Catalog{
		Suppliers: make([]Supplier, 0, len(suppliers)),
		Products:  make([]Product, 0, len(suppliers)*g.productsPerSupplier),
	}
	for i, base := range suppliers {
		supplier := base
		supplier.SupplierID = i + 1
		supplier.Phone = fmt.Sprintf("(%03d) %03d-%04d", g.rnd.Intn(900)+100, g.rnd.Intn(900)+100, g.rnd.Intn(10000))
		catalog.Suppliers = append(catalog.Suppliers, supplier)

		for j := 0; j < g.productsPerSupplier; j++ {
			category := pickOne(g.rnd, categoryNames)
			catalog.Products = append(catalog.Products, Product{
				ProductID:    len(catalog.Products) + 1,
				SupplierID:   supplier.SupplierID,
				ProductName:  pickOne(g.rnd, categories[category]),
				Category:     category,
				UnitPrice:    round2(2.5 + g.rnd.Float64()*120),
				UnitsInStock: g.pickStock(),
				Discontinued: g.rnd.Intn(100) < 8,
			})
		}
	}
	return catalog
}

func (g *Generator) pickStock() int {
	p := g.rnd.Intn(100)
	switch {
	case p < 10:
		return 0
	case p < 30:
		return g.rnd.Intn(15) + 1
	default:
		return g.rnd.Intn(120) + 15
	}
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
