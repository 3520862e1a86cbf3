package worker

import (
	"time"

	"caseflow-export/store"
)

// Nombre total de tentatives d'un job, backoff exponentiel entre deux.
const MaxAttempts = 3

var retryBackoff = []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}

// StartExportWorkers lance num workers. Chaque worker réclame un job
// PENDING dans le store (file durable, FIFO par created_at) et le traite ;
// au plus num extractions tournent en même temps par déploiement.
func StartExportWorkers(num int, deps Deps) {
	for i := 0; i < num; i++ {
		go exportWorker(deps)
	}
}

func exportWorker(deps Deps) {
	for {
		job, err := deps.Store.ClaimNextJob(time.Now().UTC())
		if err != nil {
			deps.Logger.Writef("[CLAIM_FAIL] %v", err)
			time.Sleep(1 * time.Second)
			continue
		}
		if job == nil {
			time.Sleep(300 * time.Millisecond)
			continue
		}
		deps.Logger.Writef("[START] id=%s org=%s format=%s attempt=%d",
			job.ID, job.OrgID, job.Format, job.Attempts+1)
		RunJobAttempt(job, deps)
	}
}

// RunJobAttempt exécute une tentative et fait la comptabilité retry/échec.
// Après MaxAttempts le job reste FAILED, visible par l'utilisateur et les
// opérateurs — jamais d'échec silencieux.
func RunJobAttempt(job *store.ExportJob, deps Deps) {
	err := ProcessJob(job, deps)
	if err == nil {
		return
	}

	// une annulation arrivée en cours de route prime sur le retry
	if status, serr := deps.Store.JobStatus(job.ID); serr == nil && status == store.JobCancelled {
		deps.Logger.Writef("[CANCELLED] id=%s", job.ID)
		return
	}

	attempts := job.Attempts + 1
	if attempts < MaxAttempts {
		delay := retryBackoff[attempts-1]
		if rerr := deps.Store.RequeueJob(job.ID, attempts, time.Now().UTC().Add(delay)); rerr != nil {
			deps.Logger.Writef("[REQUEUE_FAIL] id=%s %v", job.ID, rerr)
		}
		deps.Logger.Writef("[RETRY] id=%s attempt=%d delay=%s err=%v", job.ID, attempts, delay, err)
		return
	}
	failJob(job, deps, err)
}
