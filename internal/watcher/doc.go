// Package watcher keeps an index in step with a directory of documents.
//
// A HybridWatcher uses fsnotify and falls back to polling where kernel
// notifications are unavailable (network mounts, some container volumes).
// Events are debounced per path so an editor's save sequence produces one
// change, then delivered in batches. A Reindexer consumes those batches and
// runs an incremental index pass for each: unchanged documents are skipped
// by content hash, so a pass costs roughly the size of what changed.
//
// Usage:
//
//	w, err := watcher.NewHybridWatcher(watcher.Options{Ignore: ignore})
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go func() { _ = w.Start(ctx, root) }()
//	return watcher.NewReindexer(ix, sc.Collection, watcher.ReindexOptions{Prune: true}).
//	    Run(ctx, w.Events())
package watcher
