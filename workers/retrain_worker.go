package workers

import (
	"log"
	"sync"
)

// Rebuilder rebuilds the trained recognition model from the enrollment set.
type Rebuilder interface {
	Rebuild() error
}

// RetrainProcessor runs model rebuilds off the request path. Enrollment
// queues a retrain here so interactive requests only pay for training when
// they hit a stale model before the worker got to it.
type RetrainProcessor struct {
	JobQueue chan struct{}
	StopChan chan struct{}
	Wg       sync.WaitGroup

	rebuilder Rebuilder

	// only one queued rebuild at a time; a rebuild already in flight still
	// allows one more to be queued so enrollments landing mid-train are
	// picked up
	mu      sync.Mutex
	pending bool
}

func NewRetrainProcessor(rebuilder Rebuilder, queueSize, numWorkers int) *RetrainProcessor {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	proc := &RetrainProcessor{
		JobQueue:  make(chan struct{}, queueSize),
		StopChan:  make(chan struct{}),
		rebuilder: rebuilder,
	}
	proc.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go proc.worker(i)
	}
	log.Printf("Started %d retrain worker(s) with queue size %d", numWorkers, queueSize)
	return proc
}

func (rp *RetrainProcessor) worker(id int) {
	defer rp.Wg.Done()

	log.Printf("Retrain worker %d started", id)
	for {
		select {
		case _, ok := <-rp.JobQueue:
			if !ok {
				log.Printf("Retrain worker %d stopping: job queue closed", id)
				return
			}

			rp.mu.Lock()
			rp.pending = false
			rp.mu.Unlock()

			log.Printf("Retrain worker %d: rebuilding recognition model", id)
			if err := rp.rebuilder.Rebuild(); err != nil {
				log.Printf("Retrain worker %d: ERROR rebuilding model: %v", id, err)
			}

		case <-rp.StopChan:
			log.Printf("Retrain worker %d stopping: stop signal received", id)
			return
		}
	}
}

// QueueRetrain queues a model rebuild unless one is already waiting.
func (rp *RetrainProcessor) QueueRetrain() bool {
	rp.mu.Lock()
	if rp.pending {
		rp.mu.Unlock()
		return false
	}
	rp.pending = true
	rp.mu.Unlock()

	select {
	case rp.JobQueue <- struct{}{}:
		log.Println("Queued recognition model retrain")
		return true
	default:
		log.Println("WARNING: Retrain queue full, relying on lazy rebuild")
		rp.mu.Lock()
		rp.pending = false
		rp.mu.Unlock()
		return false
	}
}

func (rp *RetrainProcessor) Stop() {
	log.Println("Stopping retrain workers...")
	close(rp.StopChan)
	rp.Wg.Wait()
	log.Println("All retrain workers stopped")
}
