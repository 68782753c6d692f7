package model

// AssistantTurn is the unit handed to the async commit queue once an answer
// stream has fully drained. It carries everything the persistence worker
// needs to write the message and its citations in one transaction.
type AssistantTurn struct {
	Message   Message    `json:"message"`
	Citations []Citation `json:"citations"`
}
