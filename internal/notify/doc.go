// Package notify delivers reminder emails.
//
// Three scheduler.Notifier implementations are provided:
//
//   - GmailNotifier sends through the Gmail API as the authenticated account
//   - SendGridNotifier sends through the SendGrid v3 API
//   - DisabledNotifier rejects every delivery
//
// All of them render the same plain text and HTML bodies (see Compose) and
// send them as one multipart/alternative message. When a notification has no
// recipients the email goes to the sender.
package notify
