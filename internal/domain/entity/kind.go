// Package entity holds the record vocabulary shared by every layer: the closed
// set of entity kinds, the schemaless Record and its shallow merge contract.
package entity

import "fmt"

// Kind names one record collection.
type Kind string

const (
	Pokemon       Kind = "Pokemon"
	Move          Kind = "Move"
	TierPlacement Kind = "TierPlacement"
	RunStatistics Kind = "RunStatistics"
	RulesContent  Kind = "RulesContent"
	User          Kind = "User"
)

// Descriptor maps a kind to its storage names.
type Descriptor struct {
	Kind       Kind
	File       string   // file backend: <Kind>.json
	Collection string   // document database collection
	Unique     []string // advisory unique fields besides id
}

var descriptors = map[Kind]Descriptor{ //nolint:gochecknoglobals // closed kind table
	Pokemon:       {Kind: Pokemon, File: "Pokemon.json", Collection: "pokemons"},
	Move:          {Kind: Move, File: "Move.json", Collection: "moves"},
	TierPlacement: {Kind: TierPlacement, File: "TierPlacement.json", Collection: "tierplacements"},
	RunStatistics: {Kind: RunStatistics, File: "RunStatistics.json", Collection: "runstatistics"},
	RulesContent:  {Kind: RulesContent, File: "RulesContent.json", Collection: "rulescontents"},
	User:          {Kind: User, File: "User.json", Collection: "users", Unique: []string{"email"}},
}

// Kinds returns every kind in a stable order.
func Kinds() []Kind {
	return []Kind{Pokemon, Move, TierPlacement, RunStatistics, RulesContent, User}
}

// ParseKind resolves a path segment to a Kind. Matching is case-sensitive.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := descriptors[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Valid reports whether k is one of the six kinds.
func (k Kind) Valid() bool {
	_, ok := descriptors[k]
	return ok
}

// Describe returns the storage descriptor of k.
func (k Kind) Describe() Descriptor {
	return descriptors[k]
}

func (k Kind) String() string { return string(k) }
