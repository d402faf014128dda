package worker

import (
	"github.com/spec-kit/crew-ticket-service/internal/service"
)

// StartAuditWorker registers the audit subscriber on the event dispatcher.
func StartAuditWorker(auditService *service.AuditService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}
