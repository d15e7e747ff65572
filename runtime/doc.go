// Package runtime is the high-level entry point of the bridge.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	inst, err := rt.LoadFile(ctx, "barretenberg.wasm")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	h, err := inst.API().PedersenCompressFields(ctx, a, b)
//
// # Loading Modules
//
//	Load(bytes)      - compile and instantiate in one step
//	LoadFile(path)   - the same, reading the binary from disk
//	Compile(bytes)   - compile once, then Module.Instantiate per instance
//	Wrap(module)     - put the call surface over any cryptobridge.Module
//
// Every instance owns its own linear memory. Instances are not safe for
// concurrent use; the Runtime itself is.
//
// # Metrics
//
// When Config.Registerer is set, dispatch metrics are registered once per
// Runtime under Config.Namespace and shared by its instances.
package runtime
