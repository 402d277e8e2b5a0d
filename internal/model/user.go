// Package model defines the core data structures shared by the recipe engine.
package model

import "strings"

// GearKind distinguishes bikes from shoes.
type GearKind string

// Gear kinds.
const (
	GearBike  GearKind = "bike"
	GearShoes GearKind = "shoes"
)

// Gear is a single piece of equipment registered by the athlete.
type Gear struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Kind GearKind `json:"kind"`
}

// User is the owner of recipes and the athlete whose activities are processed.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Bikes       []Gear `json:"bikes,omitempty"`
	Shoes       []Gear `json:"shoes,omitempty"`
	IsPro       bool   `json:"isPro"`
}

// FindGear looks up a bike or pair of shoes by ID, falling back to a
// case-insensitive name match.
func (u User) FindGear(idOrName string) (Gear, bool) {
	all := make([]Gear, 0, len(u.Bikes)+len(u.Shoes))
	all = append(all, u.Bikes...)
	all = append(all, u.Shoes...)

	for _, g := range all {
		if g.ID == idOrName {
			return g, true
		}
	}
	for _, g := range all {
		if strings.EqualFold(g.Name, idOrName) {
			return g, true
		}
	}
	return Gear{}, false
}
