package crypto

import "sync"

// workerPool runs submitted tasks on a fixed number of goroutines.
// It is used for a single run and joined with wait.
type workerPool struct {
	tasks chan func()
	wg    sync.WaitGroup
}

// newWorkerPool starts workers goroutines; callers pass at least one.
func newWorkerPool(workers int) *workerPool {
	wp := &workerPool{
		tasks: make(chan func(), workers*2),
	}
	for i := 0; i < workers; i++ {
		go wp.worker()
	}
	return wp
}

func (wp *workerPool) worker() {
	for task := range wp.tasks {
		task()
		wp.wg.Done()
	}
}

func (wp *workerPool) submit(task func()) {
	wp.wg.Add(1)
	wp.tasks <- task
}

// wait blocks until every submitted task has finished and stops the workers.
func (wp *workerPool) wait() {
	wp.wg.Wait()
	close(wp.tasks)
}
