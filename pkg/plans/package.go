package plans

import "time"

// PackageKind is the tagged variant describing what a credit package grants:
// a single resource amount or a bundle of several.
type PackageKind interface {
	// Grants returns the resource amounts credited when the package is applied.
	Grants() map[ResourceType]int64

	isPackageKind()
}

// SimpleKind grants a single resource type.
type SimpleKind struct {
	Resource ResourceType `yaml:"resource"`
	Amount   int64        `yaml:"amount"`
}

func (k SimpleKind) Grants() map[ResourceType]int64 {
	return map[ResourceType]int64{k.Resource: k.Amount}
}

func (SimpleKind) isPackageKind() {}

// BundleKind grants several resource types at once.
type BundleKind struct {
	Entries map[ResourceType]int64 `yaml:"entries"`
}

func (k BundleKind) Grants() map[ResourceType]int64 {
	grants := make(map[ResourceType]int64, len(k.Entries))
	for res, amount := range k.Entries {
		grants[res] = amount
	}
	return grants
}

func (BundleKind) isPackageKind() {}

// CreditPackage is a purchasable credit bundle. Immutable after purchase;
// purchase transactions reference the package ID for audit.
type CreditPackage struct {
	ID           string
	Name         string
	Kind         PackageKind
	BonusAmount  int64 // extra credits on top of the base grant, simple kind only
	Price        Money
	ValidityDays int // 0 means credits never expire
}

// TotalGrants returns the resource amounts credited on purchase,
// including the bonus for simple packages.
func (p CreditPackage) TotalGrants() map[ResourceType]int64 {
	grants := p.Kind.Grants()
	if simple, ok := p.Kind.(SimpleKind); ok && p.BonusAmount > 0 {
		grants[simple.Resource] += p.BonusAmount
	}
	return grants
}

// ExpiryFrom returns when credits granted at purchasedAt expire, or nil for
// packages whose credits never expire.
func (p CreditPackage) ExpiryFrom(purchasedAt time.Time) *time.Time {
	if p.ValidityDays <= 0 {
		return nil
	}
	t := purchasedAt.UTC().AddDate(0, 0, p.ValidityDays)
	return &t
}

// Validate checks the package configuration.
func (p CreditPackage) Validate() error {
	if p.ID == "" || p.Kind == nil {
		return ErrInvalidPackage
	}
	for res, amount := range p.Kind.Grants() {
		if !res.Valid() || amount <= 0 {
			return ErrInvalidPackage
		}
	}
	if p.BonusAmount < 0 || p.ValidityDays < 0 {
		return ErrInvalidPackage
	}
	return nil
}
