package scheduling

import "pawsitter-api/res/store"

// Batch lifecycle: scheduled → processing → completed | failed, and
// scheduled → rejected. Completed and rejected are final. Failed is
// re-approvable: materialization is idempotent per visit, so a retry
// resumes past the visits that already went through. Processing is also
// re-approvable — under the per-batch lock a processing batch can only be
// the leftover of a crashed approval, never a live writer.

func canApprove(s store.BatchStatus) bool {
	switch s {
	case store.BatchStatusScheduled, store.BatchStatusFailed, store.BatchStatusProcessing:
		return true
	}
	return false
}

func canReject(s store.BatchStatus) bool {
	return s == store.BatchStatusScheduled
}

func canSnooze(s store.BatchStatus) bool {
	return s == store.BatchStatusScheduled
}
