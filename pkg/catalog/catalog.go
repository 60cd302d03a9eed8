// Package catalog declares the tools a realtime session may invoke.
//
// A Catalog is static: it is built once at process start, names are unique,
// and each declaration carries a JSON schema used both for registration with
// the remote session and for validating call arguments.
package catalog

import (
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Sentinel errors for the catalog package.
var (
	// ErrDuplicateTool indicates two declarations share a name.
	ErrDuplicateTool = errors.New("catalog: duplicate tool name")

	// ErrInvalidDeclaration indicates a declaration is missing a name or schema.
	ErrInvalidDeclaration = errors.New("catalog: invalid declaration")

	// ErrInvalidArguments indicates call arguments do not satisfy the schema.
	ErrInvalidArguments = errors.New("catalog: invalid arguments")
)

// Declaration describes one invocable tool.
type Declaration struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema

	resolved *jsonschema.Resolved
}

// Required lists the parameter names the schema marks as required.
func (d *Declaration) Required() []string {
	if d.Parameters == nil {
		return nil
	}
	return append([]string(nil), d.Parameters.Required...)
}

// Validate checks args against the declaration's parameter schema.
func (d *Declaration) Validate(args map[string]any) error {
	if d.resolved == nil {
		return nil
	}
	var instance any = args
	if args == nil {
		instance = map[string]any{}
	}
	if err := d.resolved.Validate(instance); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidArguments, d.Name, err)
	}
	return nil
}

// Catalog is an ordered, name-unique set of declarations.
type Catalog struct {
	decls  []*Declaration
	byName map[string]*Declaration
}

// New builds a catalog, resolving every parameter schema up front.
func New(decls ...Declaration) (*Catalog, error) {
	c := &Catalog{
		decls:  make([]*Declaration, 0, len(decls)),
		byName: make(map[string]*Declaration, len(decls)),
	}
	for i := range decls {
		d := decls[i]
		if d.Name == "" {
			return nil, fmt.Errorf("%w: declaration %d has no name", ErrInvalidDeclaration, i)
		}
		if _, ok := c.byName[d.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTool, d.Name)
		}
		if d.Parameters == nil {
			return nil, fmt.Errorf("%w: %s has no parameter schema", ErrInvalidDeclaration, d.Name)
		}
		resolved, err := d.Parameters.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDeclaration, d.Name, err)
		}
		d.resolved = resolved
		c.decls = append(c.decls, &d)
		c.byName[d.Name] = &d
	}
	return c, nil
}

// MustNew is like New but panics on error. Intended for static catalogs.
func MustNew(decls ...Declaration) *Catalog {
	c, err := New(decls...)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the declaration with the given name.
func (c *Catalog) Lookup(name string) (*Declaration, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// Len returns the number of declarations.
func (c *Catalog) Len() int {
	return len(c.decls)
}

// Names returns tool names in declaration order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.decls))
	for i, d := range c.decls {
		names[i] = d.Name
	}
	return names
}

// Declarations returns the declarations in order.
func (c *Catalog) Declarations() []*Declaration {
	return append([]*Declaration(nil), c.decls...)
}
