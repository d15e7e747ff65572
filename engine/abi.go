package engine

import "github.com/tetratelabs/wazero/api"

const (
	bbMalloc = "bbmalloc"
	bbFree   = "bbfree"

	// Fallbacks for modules built without the bb prefix
	libcMalloc    = "malloc"
	libcFree      = "free"
	simpleAlloc   = "alloc"
	simpleDealloc = "dealloc"

	initializeExport = "_initialize"
	memoryExport     = "memory"
)

var allocatorPairs = [][2]string{
	{bbMalloc, bbFree},
	{libcMalloc, libcFree},
	{simpleAlloc, simpleDealloc},
}

// findAllocator resolves the allocation exports of mod. Explicit names win;
// otherwise the first pair whose functions are both exported is used.
func findAllocator(mod api.Module, allocName, freeName string) (alloc, free api.Function) {
	if allocName != "" || freeName != "" {
		if allocName != "" {
			alloc = mod.ExportedFunction(allocName)
		}
		if freeName != "" {
			free = mod.ExportedFunction(freeName)
		}
		return alloc, free
	}
	for _, pair := range allocatorPairs {
		a, f := mod.ExportedFunction(pair[0]), mod.ExportedFunction(pair[1])
		if a != nil && f != nil {
			return a, f
		}
	}
	return nil, nil
}
