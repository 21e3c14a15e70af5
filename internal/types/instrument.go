package types

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

type InstrumentKind string

const (
	InstrumentKindCrypto InstrumentKind = "crypto"
	InstrumentKindFxPair InstrumentKind = "fx-pair"
)

// Identity is the kind-specific identity of an instrument. It is a closed set:
// CryptoIdentity and FxPairIdentity are the only implementations.
type Identity interface {
	Kind() InstrumentKind
	String() string
	isIdentity()
}

// CryptoIdentity identifies a crypto asset by its provider id (e.g. "bitcoin").
type CryptoIdentity struct {
	ProviderID string `json:"provider_id" yaml:"provider_id" validate:"required"`
}

func (CryptoIdentity) Kind() InstrumentKind { return InstrumentKindCrypto }
func (c CryptoIdentity) String() string     { return c.ProviderID }
func (CryptoIdentity) isIdentity()          {}

// FxPairIdentity identifies a currency pair. The price of the pair is the price of
// one unit of Base expressed in Quote.
type FxPairIdentity struct {
	Base  string `json:"base" yaml:"base" validate:"required,len=3,uppercase"`
	Quote string `json:"quote" yaml:"quote" validate:"required,len=3,uppercase,nefield=Base"`
}

func (FxPairIdentity) Kind() InstrumentKind { return InstrumentKindFxPair }
func (p FxPairIdentity) String() string     { return p.Base + "/" + p.Quote }
func (FxPairIdentity) isIdentity()          {}

var pairPattern = regexp.MustCompile(`^([A-Z]{3})([A-Z]{3})$`)

// ParsePair parses user input such as "EURUSD", "eur/usd" or "EUR USD" into a pair.
// It returns false when the input is not two distinct three-letter codes.
func ParsePair(input string) (FxPairIdentity, bool) {
	s := strings.ToUpper(input)
	s = strings.Join(strings.Fields(s), "")
	s = strings.Replace(s, "/", "", 1)

	m := pairPattern.FindStringSubmatch(s)
	if m == nil || m[1] == m[2] {
		return FxPairIdentity{}, false
	}

	return FxPairIdentity{Base: m[1], Quote: m[2]}, true
}

// InstrumentKeyFor returns the stable key for an identity.
func InstrumentKeyFor(id Identity) string {
	switch v := id.(type) {
	case CryptoIdentity:
		return "cg:" + v.ProviderID
	case FxPairIdentity:
		return "fx:" + v.Base + v.Quote
	default:
		panic(fmt.Sprintf("unknown identity type %T", id))
	}
}

// ParseInstrumentKey is the inverse of InstrumentKeyFor.
func ParseInstrumentKey(key string) (Identity, error) {
	prefix, rest, ok := strings.Cut(key, ":")
	if !ok || rest == "" {
		return nil, fmt.Errorf("malformed instrument key %q", key)
	}

	switch prefix {
	case "cg":
		return CryptoIdentity{ProviderID: rest}, nil
	case "fx":
		pair, ok := ParsePair(rest)
		if !ok || rest != pair.Base+pair.Quote {
			return nil, fmt.Errorf("malformed currency pair in key %q", key)
		}

		return pair, nil
	default:
		return nil, fmt.Errorf("unknown instrument key prefix %q", prefix)
	}
}

// Instrument is a tracked tradable thing together with its position and order history.
type Instrument struct {
	Key      string
	Symbol   string
	Name     string
	Identity Identity
	Position Position
	// Orders is the append-only order history, newest first.
	Orders []Order
}

// NewInstrument creates an instrument with an empty position and no orders.
func NewInstrument(id Identity, symbol, name string) *Instrument {
	return &Instrument{
		Key:      InstrumentKeyFor(id),
		Symbol:   symbol,
		Name:     name,
		Identity: id,
		Position: Position{Quantity: 0, AverageCost: 0},
		Orders:   make([]Order, 0),
	}
}

// Kind returns the instrument kind.
func (i *Instrument) Kind() InstrumentKind {
	return i.Identity.Kind()
}

// OpenOrders returns the open orders in stored order.
func (i *Instrument) OpenOrders() []Order {
	open := make([]Order, 0)

	for _, o := range i.Orders {
		if o.Status == OrderStatusOpen {
			open = append(open, o)
		}
	}

	return open
}

// Clone returns a deep copy of the instrument.
func (i *Instrument) Clone() *Instrument {
	orders := make([]Order, len(i.Orders))
	for idx, o := range i.Orders {
		orders[idx] = o.Clone()
	}

	return &Instrument{
		Key:      i.Key,
		Symbol:   i.Symbol,
		Name:     i.Name,
		Identity: i.Identity,
		Position: i.Position,
		Orders:   orders,
	}
}

// instrumentJSON is the persisted shape of an Instrument. The identity is flattened
// into a kind discriminator plus the kind-specific fields.
type instrumentJSON struct {
	Key        string          `json:"key"`
	Kind       InstrumentKind  `json:"kind"`
	Symbol     string          `json:"symbol"`
	Name       string          `json:"name"`
	ProviderID string          `json:"provider_id,omitempty"`
	Pair       *FxPairIdentity `json:"pair,omitempty"`
	Position   Position        `json:"position"`
	Orders     []Order         `json:"orders"`
}

// MarshalJSON implements json.Marshaler.
func (i Instrument) MarshalJSON() ([]byte, error) {
	out := instrumentJSON{
		Key:        i.Key,
		Kind:       "",
		Symbol:     i.Symbol,
		Name:       i.Name,
		ProviderID: "",
		Pair:       nil,
		Position:   i.Position,
		Orders:     i.Orders,
	}

	if out.Orders == nil {
		out.Orders = make([]Order, 0)
	}

	switch id := i.Identity.(type) {
	case CryptoIdentity:
		out.Kind = InstrumentKindCrypto
		out.ProviderID = id.ProviderID
	case FxPairIdentity:
		pair := id
		out.Kind = InstrumentKindFxPair
		out.Pair = &pair
	default:
		return nil, fmt.Errorf("instrument %s: unknown identity type %T", i.Key, i.Identity)
	}

	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *Instrument) UnmarshalJSON(data []byte) error {
	var in instrumentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	switch in.Kind {
	case InstrumentKindCrypto:
		if in.ProviderID == "" {
			return fmt.Errorf("instrument %s: crypto instrument without provider_id", in.Key)
		}

		i.Identity = CryptoIdentity{ProviderID: in.ProviderID}
	case InstrumentKindFxPair:
		if in.Pair == nil {
			return fmt.Errorf("instrument %s: fx-pair instrument without pair", in.Key)
		}

		i.Identity = *in.Pair
	default:
		return fmt.Errorf("instrument %s: unknown kind %q", in.Key, in.Kind)
	}

	i.Key = in.Key
	i.Symbol = in.Symbol
	i.Name = in.Name
	i.Position = in.Position
	i.Orders = in.Orders

	if i.Orders == nil {
		i.Orders = make([]Order, 0)
	}

	return nil
}
