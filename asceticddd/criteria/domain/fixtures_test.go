package criteria

import (
	"math/rand/v2"
	"strings"
	"time"

	"syreclabs.com/go/faker"
)

type Level string

type Address struct {
	City   string
	Street string
	Zip    *string
}

type Customer struct {
	ID        uint64
	Name      string
	Age       int
	Score     float64
	Active    bool
	Verified  *bool
	BirthDate time.Time
	LastSeen  *time.Time
	Level     Level
	Tags      []string
	Address   Address
	Billing   *Address
}

func (c Customer) DisplayName() string {
	return strings.ToUpper(c.Name)
}

// Lead shares most selectors with Customer.
type Lead struct {
	ID      uint64
	Name    string
	Age     int
	Address Address
}

type Account struct {
	ID     int
	Active bool
}

func ptr[T any](v T) *T {
	return &v
}

func between(lo, hi int) int {
	return lo + rand.IntN(hi-lo+1)
}

var levels = []Level{"bronze", "silver", "gold"}

// customers builds a deterministic-size dataset with random content.
func customers(n int) []Customer {
	out := make([]Customer, 0, n)
	for i := 0; i < n; i++ {
		c := Customer{
			ID:        uint64(i + 1),
			Name:      faker.Name().FirstName(),
			Age:       between(18, 80),
			Score:     float64(between(0, 1000)) / 10,
			Active:    i%2 == 0,
			BirthDate: time.Date(between(1950, 2000), time.Month(between(1, 12)), between(1, 28), 0, 0, 0, 0, time.UTC),
			Level:     levels[i%len(levels)],
			Address: Address{
				City:   faker.Address().City(),
				Street: faker.Address().StreetName(),
			},
		}
		if i%3 == 0 {
			c.Verified = ptr(i%2 == 0)
			c.LastSeen = ptr(c.BirthDate.AddDate(20, 0, 0))
			c.Billing = &Address{City: faker.Address().City(), Zip: ptr(faker.Address().ZipCode())}
		}
		if i%4 == 0 {
			c.Tags = []string{"vip", faker.Lorem().Word()}
		}
		out = append(out, c)
	}
	// Edge rows the random ones may not cover.
	out = append(out,
		Customer{ID: 90, Name: "Nine", Age: 90, Level: "gold", Address: Address{City: "Tehran"}},
		Customer{ID: 55, Name: "Five", Age: 55, Active: false},
	)
	return out
}
