// Package mailagent sequences the two gmailagent flows: authorizing Gmail
// through the tool-routing service, and answering one question about the
// mailbox with a conversational agent that can call the session's tools.
package mailagent
