package notify

import (
	"fmt"

	"github.com/xela07ax/reqtrack/internal/domain"
)

const (
	SubjectAssigned      = "New Request Assigned"
	SubjectStatusUpdated = "Request Status Updated"
)

// AssignedMessage — письмо исполнителю о новой заявке.
func AssignedMessage(req domain.Request) Message {
	body := fmt.Sprintf(`Hello,

A new request has been assigned to you by %s.
Description: %s

Please check your dashboard for more details.

Regards,
Request Manager
`, req.AssignedBy, req.Description)

	return Message{To: req.AssignedTo, Subject: SubjectAssigned, Body: body}
}

// StatusUpdatedMessage — письмо исполнителю о смене статуса.
func StatusUpdatedMessage(req domain.Request, status domain.RequestStatus) Message {
	body := fmt.Sprintf(`Hello %s,

The status of the request assigned to you has been updated.
Request ID: %s
Description: %s
New Status: %s

Please check your dashboard for more details.

Regards,
Request Manager
`, req.AssignedTo, req.ID, req.Description, status)

	return Message{To: req.AssignedTo, Subject: SubjectStatusUpdated, Body: body}
}
