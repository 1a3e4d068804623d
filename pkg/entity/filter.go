package entity

import "strings"

// Eligibility decides which entities may be linked to at all.
type Eligibility struct {
	IncludeAll bool     // link to every entity unless excluded
	Included   []string // directories whose entities are always eligible
	Excluded   []string // directories whose entities are never eligible
	IncludeTag string   // tag that opts an entity in
	ExcludeTag string   // tag that opts an entity out
}

// Allows reports whether e should be indexed.
//
// An explicit exclude tag always wins. Entities in an excluded directory are
// skipped unless they carry the include tag. Otherwise the entity needs the
// include tag, an included directory or IncludeAll.
func (f Eligibility) Allows(e *Entity) bool {
	included := e.HasTag(f.IncludeTag)
	if e.HasTag(f.ExcludeTag) {
		return false
	}
	dir := e.Dir()
	if !included && inAny(dir, f.Excluded) {
		return false
	}
	return included || f.IncludeAll || inAny(dir, f.Included)
}

// inAny reports whether dir equals or lies below one of roots.
func inAny(dir string, roots []string) bool {
	for _, root := range roots {
		root = strings.Trim(root, "/")
		if root == "" {
			// The vault root contains everything.
			return true
		}
		if dir == root || strings.HasPrefix(dir, root+"/") {
			return true
		}
	}
	return false
}
