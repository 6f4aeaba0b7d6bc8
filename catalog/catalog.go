// Package catalog holds the mock storefront data served by the preview
// server and the product search built on it.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed mock.yaml
var mockData []byte

// Data is everything a preview page can reference.
type Data struct {
	Store    Store    `yaml:"store" json:"store"`
	Products Products `yaml:"products" json:"products"`
	User     User     `yaml:"user" json:"user"`
	Page     Page     `yaml:"page" json:"page"`
}

type Store struct {
	Name        string     `yaml:"name" json:"name"`
	URL         string     `yaml:"url" json:"url"`
	Logo        string     `yaml:"logo" json:"logo"`
	Favicon     string     `yaml:"favicon" json:"favicon"`
	Description string     `yaml:"description" json:"description"`
	Currency    string     `yaml:"currency" json:"currency"`
	Banners     []Banner   `yaml:"banners" json:"banners"`
	Categories  []Category `yaml:"categories" json:"categories"`
	Brands      []Brand    `yaml:"brands" json:"brands"`
}

type Banner struct {
	Image       string `yaml:"image" json:"image"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	URL         string `yaml:"url" json:"url"`
}

type Category struct {
	ID            int    `yaml:"id" json:"id"`
	Name          string `yaml:"name" json:"name"`
	URL           string `yaml:"url" json:"url"`
	Image         string `yaml:"image" json:"image"`
	ProductsCount int    `yaml:"products_count" json:"products_count"`
}

type Brand struct {
	ID   int    `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	Logo string `yaml:"logo" json:"logo"`
	URL  string `yaml:"url" json:"url"`
}

type Products struct {
	Featured []Product `yaml:"featured" json:"featured"`
}

type Product struct {
	ID              int             `yaml:"id" json:"id"`
	Name            string          `yaml:"name" json:"name"`
	URL             string          `yaml:"url" json:"url"`
	Image           string          `yaml:"image" json:"image"`
	Price           decimal.Decimal `yaml:"price" json:"price"`
	RegularPrice    decimal.Decimal `yaml:"regular_price" json:"regular_price"`
	SalePrice       decimal.Decimal `yaml:"sale_price" json:"sale_price"`
	IsOnSale        bool            `yaml:"is_on_sale" json:"is_on_sale"`
	IsNew           bool            `yaml:"is_new" json:"is_new"`
	IsOutOfStock    bool            `yaml:"is_out_of_stock" json:"is_out_of_stock"`
	Rating          float64         `yaml:"rating" json:"rating"`
	ReviewsCount    int             `yaml:"reviews_count" json:"reviews_count"`
	DiscountPercent int             `yaml:"discount_percent" json:"discount_percent"`
	Status          string          `yaml:"status" json:"status"`
	Category        string          `yaml:"category" json:"category"`
}

type User struct {
	Language Language `yaml:"language" json:"language"`
}

type Language struct {
	Code string `yaml:"code" json:"code"`
	Dir  string `yaml:"dir" json:"dir"`
}

type Page struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	URL         string `yaml:"url" json:"url"`
}

// Default returns the built-in mock data.
func Default() (*Data, error) {
	return Parse(mockData)
}

// LoadFile reads mock data from a YAML file.
func LoadFile(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes YAML mock data.
func Parse(raw []byte) (*Data, error) {
	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	return &d, nil
}

// Product returns the featured product with id.
func (d *Data) Product(id int) (Product, bool) {
	for _, p := range d.Products.Featured {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
