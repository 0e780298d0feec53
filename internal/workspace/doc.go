// Package workspace owns the live class cache of one project.
//
// A Cache is created with New, started with Start and torn down with Close.
// Start runs the bulk scan in the background; lifecycle events submitted
// meanwhile are queued and applied, in arrival order, by a single
// dispatcher goroutine once the scan is done.
//
//	disk, _ := workspace.NewDiskSource(root, cfg)
//	cache := workspace.New(disk, workspace.WithConfig(cfg))
//	cache.Start(ctx)
//	defer cache.Close()
//
//	stop, _ := cache.WatchDisk(ctx, disk, watcherOpts)
//	defer stop()
//	cache.Submit(workspace.Event{Kind: workspace.DocumentChanged, ...})
//	names := cache.AllTokens()
package workspace
