package discount

import "github.com/google/uuid"

// matchesScope implements the allow/deny list semantics shared by the
// membership conditions and the applicator's target-scope check: an allow
// list passes only members, a deny list passes only non-members (and passes
// trivially when the membership set is empty).
func matchesScope(member, allowList bool) bool {
	return member == allowList
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, el := range ids {
		if el == id {
			return true
		}
	}
	return false
}

func intersects(a, b []uuid.UUID) bool {
	for _, el := range a {
		if contains(b, el) {
			return true
		}
	}
	return false
}
