// Package watcher reports changes to markup files under a project root.
//
// HybridWatcher uses fsnotify and falls back to polling when inotify (or
// its platform equivalent) cannot be initialized, as on some network
// mounts and container volumes. Raw events are coalesced per path by a
// Debouncer and delivered in batches:
//
//	w, err := watcher.New(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//	go w.Start(ctx, root)
//
//	for batch := range w.Events() {
//	    for _, ev := range batch {
//	        switch ev.Operation {
//	        case watcher.OpCreate, watcher.OpModify:
//	            // re-read ev.Path
//	        case watcher.OpDelete, watcher.OpRename:
//	            // forget ev.Path
//	        case watcher.OpGitignoreChange:
//	            // re-list the tree
//	        }
//	    }
//	}
//
// Paths are slash-separated and relative to the watched root. Version
// control directories, dependency directories and .gitignore'd paths never
// produce events.
package watcher
