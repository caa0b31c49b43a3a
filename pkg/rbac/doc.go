// Package rbac implements permission evaluation over a static permission
// matrix, plus the tenant-scoped role store behind it.
//
// # Evaluation
//
// Authorize runs an ordered rule chain where the first matching rule decides:
//
//  1. Super admin context allows everything.
//  2. Inactive users are denied everything.
//  3. A tenant admin allows everything inside their own tenant only. The
//     tenant comparison never matches two absent tenants.
//  4. The super_admin account role allows everything.
//  5. The assigned role's permission set is consulted.
//  6. The user's direct "module:action" grants are consulted.
//  7. Deny.
//
// The chain order is a correctness requirement, not a convenience: moving
// rule 2 below rule 3 would let a deactivated tenant admin keep full access,
// and moving rule 3 above the tenant comparison would leak admin power across
// tenants.
//
// # Matrix
//
// The permission matrix is the closed registry of module/action pairs.
// Role permission sets are validated against it at write time, and route
// guards validate their pair at registration time, so an unknown pair cannot
// appear at evaluation time through either path.
//
// # Usage
//
//	matrix := rbac.DefaultMatrix()
//	store := rbac.NewStore(db, matrix)
//	guard := rbac.NewPermissionMiddleware(subjects, matrix, recorder, logger, metrics)
//
//	router.Handle("/api/orders",
//		guard.Require(rbac.ModuleOrders, rbac.ActionCreate)(createOrder),
//	).Methods("POST")
package rbac
