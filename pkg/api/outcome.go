package api

// Outcome is what the reconciler hands to the presenter.
type Outcome interface {
	isOutcome()
}

// Added reports appended transactions. IDs[i] belongs to Transactions[i].
type Added struct {
	IDs          []string
	Transactions []Transaction
}

// Edited reports the merged record of an edited transaction.
type Edited struct {
	ID          string
	Transaction Transaction
}

// EditFailed reports that the edit target does not exist in the partition.
type EditFailed struct{}

// EditMissingData reports an edit request that carried no replacement data.
type EditMissingData struct{}

// Deleted reports that at least one requested ID was blanked.
type Deleted struct {
	// IDs are the IDs the user asked for, matched or not.
	IDs []string
}

// DeleteFailed reports that none of the requested IDs exist.
type DeleteFailed struct{}

// Chatted carries a conversational reply.
type Chatted struct {
	Message string
}

// Failed is produced at the message-handling boundary when processing errors.
type Failed struct {
	Reason string
}

func (Added) isOutcome()           {}
func (Edited) isOutcome()          {}
func (EditFailed) isOutcome()      {}
func (EditMissingData) isOutcome() {}
func (Deleted) isOutcome()         {}
func (DeleteFailed) isOutcome()    {}
func (Chatted) isOutcome()         {}
func (Failed) isOutcome()          {}
