package catalog

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	columnProduct   = "product"
	columnProductID = "product_id"
)

var (
	ErrMissingColumn = errors.New("reference table is missing a required column")
	ErrEmptyTable    = errors.New("reference table has no products")
)

// Product is one row of the reference table.
type Product struct {
	Name string `json:"product"`
	ID   string `json:"product_id"`
}

// Catalog is the immutable product reference table loaded at startup.
type Catalog struct {
	rows  []Product
	names []string
	index map[string]string
}

// Load reads a tab-separated reference table from path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference table failed: %w", err)
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse reference table %s failed: %w", path, err)
	}
	return c, nil
}

// Parse reads a tab-separated table with a header row containing at least
// the product and product_id columns.
func Parse(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, fmt.Errorf("read header failed: %w", err)
	}

	nameCol, idCol := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")) {
		case columnProduct:
			if nameCol < 0 {
				nameCol = i
			}
		case columnProductID:
			if idCol < 0 {
				idCol = i
			}
		}
	}
	if nameCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, columnProduct)
	}
	if idCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, columnProductID)
	}

	c := &Catalog{index: make(map[string]string)}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row failed: %w", err)
		}
		line, _ := reader.FieldPos(0)

		name := strings.TrimSpace(record[nameCol])
		if name == "" {
			return nil, fmt.Errorf("row on line %d has an empty product name", line)
		}
		id := strings.TrimSpace(record[idCol])
		if id == "" {
			return nil, fmt.Errorf("row on line %d has an empty product_id", line)
		}
		c.add(Product{Name: name, ID: id})
	}

	if len(c.rows) == 0 {
		return nil, ErrEmptyTable
	}
	return c, nil
}

// New builds a catalog from rows in order. Used by tests and tooling that
// already hold the table in memory.
func New(rows []Product) *Catalog {
	c := &Catalog{index: make(map[string]string, len(rows))}
	for _, row := range rows {
		c.add(row)
	}
	return c
}

func (c *Catalog) add(p Product) {
	c.rows = append(c.rows, p)
	if _, seen := c.index[p.Name]; seen {
		return
	}
	c.index[p.Name] = p.ID
	c.names = append(c.names, p.Name)
}

// Len returns the number of rows, duplicates included.
func (c *Catalog) Len() int {
	return len(c.rows)
}

// Fingerprint identifies the table contents. Two catalogs with the same rows
// in the same order share a fingerprint.
func (c *Catalog) Fingerprint() string {
	h := sha256.New()
	for _, row := range c.rows {
		fmt.Fprintf(h, "%s\t%s\n", row.Name, row.ID)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Products returns the distinct product names in first-appearance order.
func (c *Catalog) Products() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

func (c *Catalog) Contains(name string) bool {
	_, ok := c.index[name]
	return ok
}

// ProductID returns the id of the first row named name.
func (c *Catalog) ProductID(name string) (string, bool) {
	id, ok := c.index[name]
	return id, ok
}

// Resolve returns the first candidate that names a known product.
func (c *Catalog) Resolve(candidates []string) (Product, bool) {
	for _, candidate := range candidates {
		if id, ok := c.index[candidate]; ok {
			return Product{Name: candidate, ID: id}, true
		}
	}
	return Product{}, false
}
