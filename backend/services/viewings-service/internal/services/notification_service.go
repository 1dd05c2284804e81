package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/config"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
	"github.com/rentwell/mono-repo/backend/shared/go-repositories"
	"github.com/rentwell/mono-repo/backend/shared/go-utils"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

const (
	financeTeamName      = "Rentwell Finance"
	viewingTimeLayout    = "Mon Jan 2, 2006 at 3:04 PM MST"
	emailSubjectPrefix   = "Rentwell viewing"
	releaseFailedSubject = "ACTION REQUIRED: viewing fee release failed for %s"
)

// Notifier tells the other party about lifecycle changes. Calls are made
// from detached goroutines; implementations log their own failures.
type Notifier interface {
	NotifyScheduled(ctx context.Context, vr *models.ViewingRequest)
	NotifyCancelled(ctx context.Context, vr *models.ViewingRequest, by models.ActorRole)
	NotifyConfirmed(ctx context.Context, vr *models.ViewingRequest, by models.ActorRole)
	NotifyReleaseFailed(ctx context.Context, pr *models.PaymentRelease)
}

type NotificationService struct {
	cfg          *config.Config
	profileRepo  repositories.ProfileRepository
	propertyRepo repositories.PropertyRepository

	sendEmail func(msg *mail.SGMailV3) error
	sendSMS   func(to, body string) error
}

func NewNotificationService(
	cfg *config.Config,
	profileRepo repositories.ProfileRepository,
	propertyRepo repositories.PropertyRepository,
) *NotificationService {
	sgClient := sendgrid.NewSendClient(cfg.SendGridAPIKey)
	twClient := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})

	return &NotificationService{
		cfg:          cfg,
		profileRepo:  profileRepo,
		propertyRepo: propertyRepo,
		sendEmail: func(msg *mail.SGMailV3) error {
			resp, err := sgClient.Send(msg)
			if err != nil {
				return err
			}
			if resp.StatusCode >= 300 {
				return fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, resp.Body)
			}
			return nil
		},
		sendSMS: func(to, body string) error {
			params := &twilioApi.CreateMessageParams{}
			params.SetTo(to)
			params.SetFrom(cfg.LDFlag_TwilioFromPhone)
			params.SetBody(body)
			_, err := twClient.Api.CreateMessage(params)
			return err
		},
	}
}

func (s *NotificationService) NotifyScheduled(ctx context.Context, vr *models.ViewingRequest) {
	prop := s.property(ctx, vr)
	when := "a time to be confirmed"
	if vr.ScheduledDate != nil {
		when = vr.ScheduledDate.In(propertyLocation(prop)).Format(viewingTimeLayout)
	}
	s.notifyParty(ctx, vr.TenantID,
		fmt.Sprintf("%s scheduled: %s", emailSubjectPrefix, propertyTitle(prop)),
		fmt.Sprintf("Your viewing of %s is scheduled for %s.", propertyTitle(prop), when),
	)
}

func (s *NotificationService) NotifyCancelled(ctx context.Context, vr *models.ViewingRequest, by models.ActorRole) {
	prop := s.property(ctx, vr)
	s.notifyParty(ctx, counterparty(vr, by),
		fmt.Sprintf("%s cancelled: %s", emailSubjectPrefix, propertyTitle(prop)),
		fmt.Sprintf("The %s cancelled the viewing request for %s.", by, propertyTitle(prop)),
	)
}

func (s *NotificationService) NotifyConfirmed(ctx context.Context, vr *models.ViewingRequest, by models.ActorRole) {
	prop := s.property(ctx, vr)
	body := fmt.Sprintf("The %s marked the viewing of %s as completed. Please confirm it from your dashboard.", by, propertyTitle(prop))
	if vr.BothConfirmed() {
		body = fmt.Sprintf("Both parties confirmed the viewing of %s. The viewing fee is being released.", propertyTitle(prop))
	}
	s.notifyParty(ctx, counterparty(vr, by),
		fmt.Sprintf("%s confirmed: %s", emailSubjectPrefix, propertyTitle(prop)),
		body,
	)
}

func (s *NotificationService) NotifyReleaseFailed(ctx context.Context, pr *models.PaymentRelease) {
	if s.cfg.FinanceEmail == "" {
		utils.Logger.Warnf("FINANCE_ALERT_EMAIL not configured; release %s failure not emailed", pr.ID)
		return
	}
	lastErr := utils.Val(pr.LastError)
	if lastErr == "" {
		lastErr = "<unknown>"
	}
	subject := fmt.Sprintf(releaseFailedSubject, pr.ViewingRequestID)
	body := fmt.Sprintf(
		"Payment release %s for viewing request %s failed after %d attempts.\n\nLast error: %s\n\nRetry with: viewings-admin retry %s",
		pr.ID, pr.ViewingRequestID, pr.Attempts, lastErr, pr.ViewingRequestID,
	)
	to := mail.NewEmail(financeTeamName, s.cfg.FinanceEmail)
	if err := s.sendEmail(s.newMail(to, subject, body)); err != nil {
		utils.Logger.WithError(err).Errorf("Failed to email finance about release %s", pr.ID)
	}
}

func (s *NotificationService) notifyParty(ctx context.Context, profileID uuid.UUID, subject, body string) {
	if !s.cfg.LDFlag_NotificationsEnabled {
		utils.Logger.Debugf("Notifications disabled; skipping %q to %s", subject, profileID)
		return
	}

	p, err := s.profileRepo.GetByID(ctx, profileID)
	if err != nil {
		utils.Logger.WithError(err).Warnf("Cannot notify profile %s", profileID)
		return
	}
	if p == nil {
		utils.Logger.Warnf("Cannot notify profile %s: not found", profileID)
		return
	}

	if utils.IsValidEmailSyntax(p.Email) {
		to := mail.NewEmail(p.FullName, p.Email)
		if err := s.sendEmail(s.newMail(to, subject, body)); err != nil {
			utils.Logger.WithError(err).Warnf("Failed to email profile %s", p.ID)
		}
	}
	if p.PhoneNumber != nil && utils.IsE164(*p.PhoneNumber) {
		if err := s.sendSMS(*p.PhoneNumber, subject+" :: "+body); err != nil {
			utils.Logger.WithError(err).Warnf("Failed to SMS profile %s", p.ID)
		}
	}
}

func (s *NotificationService) newMail(to *mail.Email, subject, body string) *mail.SGMailV3 {
	from := mail.NewEmail(s.cfg.OrganizationName, s.cfg.LDFlag_SendgridFromEmail)
	msg := mail.NewSingleEmail(from, subject, to, body, "<p>"+body+"</p>")
	if s.cfg.LDFlag_SendgridSandboxMode {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		msg.MailSettings = ms
	}
	return msg
}

func (s *NotificationService) property(ctx context.Context, vr *models.ViewingRequest) *models.Property {
	p, err := s.propertyRepo.GetByID(ctx, vr.PropertyID)
	if err != nil {
		utils.Logger.WithError(err).Warnf("Failed to load property %s for notification", vr.PropertyID)
		return nil
	}
	return p
}

// counterparty is the side that did not act.
func counterparty(vr *models.ViewingRequest, actor models.ActorRole) uuid.UUID {
	if actor == models.ActorRoleTenant {
		return vr.LandlordID
	}
	return vr.TenantID
}

func propertyTitle(p *models.Property) string {
	if p == nil || p.Title == "" {
		return "the property"
	}
	return p.Title
}
