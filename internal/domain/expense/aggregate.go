package expense

// ComputeStatus derives a submitted claim's status from its full record set.
// Any rejection wins; otherwise every record must be approved, and an empty
// set never promotes.
func ComputeStatus(records []ApprovalRecord) Status {
	if len(records) == 0 {
		return StatusPending
	}
	approved := 0
	for _, rec := range records {
		switch rec.Status {
		case RecordRejected:
			return StatusRejected
		case RecordApproved:
			approved++
		}
	}
	if approved == len(records) {
		return StatusApproved
	}
	return StatusPending
}
