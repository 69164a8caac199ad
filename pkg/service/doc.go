// Package service wires the storage engine, rule catalog, integrity gate,
// and telemetry into a single façade.
//
// # Overview
//
// A Service owns one storage engine with the integrity interceptor
// registered as its before-commit hook. Writes submitted through
// SubmitWrite are staged in a transaction and verified against the active
// rule catalog at commit time; a veto rolls the transaction back and
// surfaces the violation to the caller. The rule catalog loads from YAML
// files, optionally hot-reloading on file changes, and the telemetry
// scheduler samples engine counters in the background.
//
// # Usage
//
//	svc, err := service.New(cfg, logger)
//	if err != nil {
//		return err
//	}
//	defer svc.Close()
//
//	if err := svc.Start(ctx); err != nil {
//		return err
//	}
//
//	err = svc.SubmitWrite(ctx, "customers", []service.WriteRequest{
//		{ID: "c-1", Row: storage.Row{"Email": "a@example.com"}},
//	})
package service
