package simulator

import (
	"fmt"
	"math"
	"sync"
)

// AddressBook maps rounded coordinates to display names.
type AddressBook struct {
	mu        sync.RWMutex
	addresses map[string]string
	synthetic bool
}

// NewAddressBook answers unknown points with a generated name when synthetic
// is set, and with Nominatim's "Unable to geocode" otherwise.
func NewAddressBook(synthetic bool) *AddressBook {
	return &AddressBook{
		addresses: make(map[string]string),
		synthetic: synthetic,
	}
}

func addressKey(lat, lng float64) string {
	return fmt.Sprintf("%.5f,%.5f", lat, lng)
}

func (b *AddressBook) Set(lat, lng float64, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addresses[addressKey(lat, lng)] = name
}

func (b *AddressBook) Delete(lat, lng float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := addressKey(lat, lng)
	_, ok := b.addresses[key]
	delete(b.addresses, key)
	return ok
}

func (b *AddressBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.addresses)
}

func (b *AddressBook) Lookup(lat, lng float64) (string, bool) {
	b.mu.RLock()
	name, ok := b.addresses[addressKey(lat, lng)]
	b.mu.RUnlock()
	if ok {
		return name, true
	}
	if !b.synthetic {
		return "", false
	}
	return syntheticName(lat, lng), true
}

// syntheticName is stable per ~1km grid cell.
func syntheticName(lat, lng float64) string {
	row := int(math.Floor(lat * 100))
	col := int(math.Floor(lng * 100))
	street := (row*31 + col*17) % 97
	if street < 0 {
		street = -street
	}
	return fmt.Sprintf("%d Simulated Street, Grid %d/%d", street+1, row, col)
}
