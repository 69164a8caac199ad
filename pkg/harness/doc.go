// Package harness provides test fakes and assertions for exercising the
// integrity gate without a live store.
//
// A FakeStore wires an in-memory engine to the verification gate; Seed
// bypasses verification for reference data, Submit runs a row through the
// full commit path. The Expect helpers assert on verdicts:
//
//	store := harness.NewFakeStore(t, rules)
//	store.Seed("approvals", "a-1", storage.Row{"CustomerID": "c-1"})
//	err := store.Submit(ctx, t, "customers", "c-1", row)
//	harness.ExpectViolation(t, err, "^CREDIT_")
package harness
