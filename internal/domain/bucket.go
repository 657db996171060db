package domain

import "hash/fnv"

// bucket hashes a key into [0,100). FNV-1a is deterministic across runs and
// processes and mixes well enough over realistic ID distributions; this is
// not a security boundary.
func bucket(key string) int {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int(h.Sum64() % 100)
}

// AssignmentBucket returns the deterministic bucket for variant selection.
func AssignmentBucket(callerKey, experimentID string) int {
	return bucket(callerKey + "-" + experimentID)
}

// RolloutBucket returns the bucket used by the percentage targeting gate.
// It uses the same hash family as AssignmentBucket so the gate decision is
// stable across repeated calls without a persisted flag.
func RolloutBucket(callerKey, experimentID string) int {
	return bucket(callerKey + experimentID)
}

// ChooseVariant maps a caller key to a variant by walking the variant list in
// configured order and accumulating weights. Weights sum to 100, so the walk
// always terminates with a variant.
func ChooseVariant(e *Experiment, callerKey string) *Variant {
	r := AssignmentBucket(callerKey, e.ID)
	cumulative := 0
	for i := range e.Variants {
		cumulative += e.Variants[i].Weight
		if r < cumulative {
			return &e.Variants[i]
		}
	}
	// Unreachable for validated experiments; fall back to the last variant
	// rather than panic on unvalidated input.
	return &e.Variants[len(e.Variants)-1]
}

// IsEligible evaluates the targeting rules for a caller. All configured
// predicates must pass; absent predicates are vacuously satisfied. Pure
// function of its inputs.
func IsEligible(e *Experiment, callerKey string, caller CallerContext) bool {
	t := e.Targeting

	if t.Percentage != nil && *t.Percentage < 100 {
		if RolloutBucket(callerKey, e.ID) >= *t.Percentage {
			return false
		}
	}

	if len(t.TenantAllowList) > 0 && !contains(t.TenantAllowList, caller.TenantID) {
		return false
	}

	if len(t.RoleAllowList) > 0 && !contains(t.RoleAllowList, caller.Role) {
		return false
	}

	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
