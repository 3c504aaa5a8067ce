package httpapi

import (
	"context"
	"reflect"
	"slices"
	"sync"

	criteria "github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain"
	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/infrastructure/memory"
)

// Dataset is a named source the service filters. Both memory.Slice and
// pg.Repository satisfy it.
type Dataset interface {
	EntityType() reflect.Type
	FindDocument(ctx context.Context, doc *criteria.QueryDocument) (memory.Page[any], error)
}

type Datasets struct {
	mu    sync.RWMutex
	items map[string]Dataset
}

func NewDatasets() *Datasets {
	return &Datasets{items: make(map[string]Dataset)}
}

// Register adds or replaces the dataset called name.
func (d *Datasets) Register(name string, ds Dataset) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items[name] = ds
}

func (d *Datasets) Lookup(name string) (Dataset, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ds, ok := d.items[name]
	return ds, ok
}

func (d *Datasets) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.items))
	for name := range d.items {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
