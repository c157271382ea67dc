package customer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind names one of the supported predicate variants.
type Kind string

const (
	KindGenderEquals Kind = "gender_equals"
	KindAgeAbove     Kind = "age_above"
	KindCityEquals   Kind = "city_equals"
	KindDepositAbove Kind = "deposit_above"
	KindNewCustomer  Kind = "new_customer"
	KindAll          Kind = "all"
	KindAny          Kind = "any"
	KindNot          Kind = "not"
)

var ErrUnknownKind = errors.New("unknown filter kind")

// Predicate is a closed, inspectable eligibility rule over a Customer.
// Only the parameter matching Kind is meaningful.
type Predicate struct {
	Kind    Kind
	Text    string
	Number  int
	Amount  decimal.Decimal
	Clauses []Predicate
}

var (
	MaleCustomers               = GenderEquals("Male")
	CustomersAbove45            = AgeAbove(45)
	CustomersInNewYork          = CityEquals("New York")
	CustomersDepositMoreThan100 = DepositAbove(decimal.NewFromInt(100))
	NewCustomers                = Predicate{Kind: KindNewCustomer}
)

func GenderEquals(g string) Predicate { return Predicate{Kind: KindGenderEquals, Text: g} }
func AgeAbove(n int) Predicate        { return Predicate{Kind: KindAgeAbove, Number: n} }
func CityEquals(c string) Predicate   { return Predicate{Kind: KindCityEquals, Text: c} }
func DepositAbove(d decimal.Decimal) Predicate {
	return Predicate{Kind: KindDepositAbove, Amount: d}
}
func All(ps ...Predicate) Predicate { return Predicate{Kind: KindAll, Clauses: ps} }
func Any(ps ...Predicate) Predicate { return Predicate{Kind: KindAny, Clauses: ps} }
func Not(p Predicate) Predicate     { return Predicate{Kind: KindNot, Clauses: []Predicate{p}} }

// Match reports whether c satisfies the predicate. Unknown kinds never match.
func (p Predicate) Match(c Customer) bool {
	switch p.Kind {
	case KindGenderEquals:
		return c.Gender == p.Text
	case KindAgeAbove:
		return c.Age > p.Number
	case KindCityEquals:
		return c.City == p.Text
	case KindDepositAbove:
		return c.Deposit.GreaterThan(p.Amount)
	case KindNewCustomer:
		return c.IsNewCustomer
	case KindAll:
		for _, q := range p.Clauses {
			if !q.Match(c) {
				return false
			}
		}
		return true
	case KindAny:
		for _, q := range p.Clauses {
			if q.Match(c) {
				return true
			}
		}
		return false
	case KindNot:
		return len(p.Clauses) == 1 && !p.Clauses[0].Match(c)
	}
	return false
}

func (p Predicate) String() string {
	switch p.Kind {
	case KindGenderEquals, KindCityEquals:
		return fmt.Sprintf("%s(%q)", p.Kind, p.Text)
	case KindAgeAbove:
		return fmt.Sprintf("%s(%d)", p.Kind, p.Number)
	case KindDepositAbove:
		return fmt.Sprintf("%s(%s)", p.Kind, p.Amount.String())
	case KindAll, KindAny, KindNot:
		parts := make([]string, len(p.Clauses))
		for i, q := range p.Clauses {
			parts[i] = q.String()
		}
		return fmt.Sprintf("%s(%s)", p.Kind, strings.Join(parts, ", "))
	}
	return string(p.Kind)
}

// Spec is the serialized form of a Predicate (config, storage, API).
type Spec struct {
	Kind    string `json:"kind"`
	Value   string `json:"value,omitempty"`
	Clauses []Spec `json:"clauses,omitempty"`
}

// Parse builds a Predicate from its serialized form.
func Parse(s Spec) (Predicate, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(s.Kind)))
	value := strings.TrimSpace(s.Value)
	switch kind {
	case KindGenderEquals:
		return GenderEquals(value), nil
	case KindCityEquals:
		return CityEquals(value), nil
	case KindAgeAbove:
		n, err := strconv.Atoi(value)
		if err != nil {
			return Predicate{}, fmt.Errorf("%s: invalid age %q: %w", kind, value, err)
		}
		return AgeAbove(n), nil
	case KindDepositAbove:
		d, err := decimal.NewFromString(value)
		if err != nil {
			return Predicate{}, fmt.Errorf("%s: invalid amount %q: %w", kind, value, err)
		}
		return DepositAbove(d), nil
	case KindNewCustomer:
		return NewCustomers, nil
	case KindAll, KindAny, KindNot:
		if len(s.Clauses) == 0 || (kind == KindNot && len(s.Clauses) != 1) {
			return Predicate{}, fmt.Errorf("%s: wrong number of clauses (%d)", kind, len(s.Clauses))
		}
		clauses := make([]Predicate, 0, len(s.Clauses))
		for _, cs := range s.Clauses {
			q, err := Parse(cs)
			if err != nil {
				return Predicate{}, err
			}
			clauses = append(clauses, q)
		}
		return Predicate{Kind: kind, Clauses: clauses}, nil
	}
	return Predicate{}, fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
}
