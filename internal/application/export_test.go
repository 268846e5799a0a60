package application

import "time"

func (o *CheckoutOrchestrator) SetClock(now func() time.Time) { o.now = now }

func (l *EnrollmentLedger) SetClock(now func() time.Time) { l.now = now }
