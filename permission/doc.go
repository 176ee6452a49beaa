// Package permission implements role-based access control: role and permission
// stores with secondary indices, cycle-checked role inheritance, cached
// effective-permission resolution, and condition-aware access evaluation.
//
// # Matching
//
// A permission's Resource and Action are matched against a request either
// exactly, by the universal wildcard "*", or by a "prefix:*" pattern that
// matches any value beginning with "prefix:".
//
// # Conditions
//
// Conditions form a closed set: [OwnershipCondition], [TimeCondition],
// [LocationCondition], [ClassificationCondition] and [CustomCondition]. All
// conditions on a permission must hold for it to apply.
//
// # Architecture boundaries
//
// The [Evaluator] only reads the stores. Stores are mutated by their owners and
// notify change listeners so cached resolutions are invalidated.
//
// # What this package must NOT do
//
//   - Access the network or persistent storage.
//   - Import goAccess, jwt, or session.
//   - Report denials as errors; a denial is a [Decision].
package permission
