// Package command exposes go-command compatible handlers for every write
// workflow of the STAR application: identity sync, user administration,
// competency, story and case study maintenance, and the AI assisted
// operations. Handlers are wired by the service layer and can be invoked by
// any transport.
//
// Each handler runs its storage work inside one unit of work and writes its
// audit entry in the same transaction. AI handlers load their inputs, commit,
// call the model with no transaction open, then persist results and audit in
// a second unit of work.
package command
