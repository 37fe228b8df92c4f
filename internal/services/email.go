package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"mime"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"smartwaste-backend/internal/config"
)

const (
	EmailModeSMTP    = "real_email"
	EmailModeConsole = "console_logging"
)

// sendMailFunc matches smtp.SendMail
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailService delivers transactional mail over SMTP, or logs it to the
// console when no credentials are configured
type EmailService struct {
	cfg      config.EmailConfig
	sendMail sendMailFunc
}

// EmailStatus is reported by GET /api/email/status
type EmailStatus struct {
	Configured  bool   `json:"configured"`
	Mode        string `json:"mode"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	User        string `json:"user"`
	HasPassword bool   `json:"hasPassword"`
	Message     string `json:"message"`
}

func NewEmailService(cfg config.EmailConfig) *EmailService {
	s := &EmailService{cfg: cfg, sendMail: smtp.SendMail}
	if cfg.Configured() {
		log.Println("✅ Email transporter initialized successfully")
		log.Printf("📧 SMTP Host: %s:%d", cfg.Host, cfg.Port)
	} else {
		log.Println("⚠️  Email transporter not configured - using console mode")
		log.Println("📧 To configure: Set EMAIL_USER and EMAIL_PASS in .env file")
	}
	return s
}

func (s *EmailService) Status() EmailStatus {
	status := EmailStatus{
		Configured:  s.cfg.Configured(),
		Mode:        EmailModeConsole,
		Host:        s.cfg.Host,
		Port:        s.cfg.Port,
		User:        "not configured",
		HasPassword: s.cfg.Pass != "",
		Message:     "Email service in console mode - check server logs for email content",
	}
	if status.Configured {
		status.Mode = EmailModeSMTP
		status.User = s.cfg.User
		status.Message = "Email service ready - will send actual emails"
	}
	return status
}

type rewardMailData struct {
	Name       string
	RewardName string
	Cost       string
	NewBalance string
}

type welcomeMailData struct {
	Name string
}

var rewardMailTemplate = template.Must(template.New("reward").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background: #10b981; color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0;">
      <h1>🎉 Congratulations!</h1>
      <p>Your reward has been successfully redeemed</p>
    </div>
    <div style="background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px;">
      <p>Dear {{.Name}},</p>
      <p style="color: #10b981; font-weight: bold;">Your reward redemption has been confirmed!</p>
      <h3>📦 Reward Details</h3>
      <p><strong>Reward:</strong> {{.RewardName}}</p>
      <p><strong>Cost:</strong> 🪙 {{.Cost}} coins</p>
      <h3>💰 Your Account</h3>
      <p><strong>Remaining Balance:</strong> 🪙 {{.NewBalance}} coins</p>
      <p>Your reward will be processed within 2-3 business days.</p>
      <p>Thank you for using the Smart Waste Management System!</p>
    </div>
  </div>
</body>
</html>`))

var welcomeMailTemplate = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background: #10b981; color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0;">
      <h1>🌱 Welcome to Smart Waste Management!</h1>
      <p>Start earning coins by recycling responsibly</p>
    </div>
    <div style="background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px;">
      <p>Dear {{.Name}},</p>
      <p>Welcome to the Smart Waste Management System! We're excited to have you join our community.</p>
      <p><strong>📱 Scan QR Codes:</strong> Scan waste management QR codes to earn coins</p>
      <p><strong>🪙 Earn Rewards:</strong> Redeem your coins for rewards</p>
      <p><strong>📊 Track Progress:</strong> Monitor your environmental impact</p>
      <p>Best regards,<br>The Smart Waste Management Team</p>
    </div>
  </div>
</body>
</html>`))

// SendRewardConfirmation mails the user a receipt for a redemption
func (s *EmailService) SendRewardConfirmation(ctx context.Context, to, name, rewardName string, cost, newBalance int) error {
	var body bytes.Buffer
	err := rewardMailTemplate.Execute(&body, rewardMailData{
		Name:       name,
		RewardName: rewardName,
		Cost:       groupThousands(cost),
		NewBalance: groupThousands(newBalance),
	})
	if err != nil {
		return fmt.Errorf("failed to render reward email: %w", err)
	}
	return s.send(ctx, to, "🎉 Reward Redemption Confirmed - "+rewardName, body.String())
}

// SendWelcome mails a newly registered user
func (s *EmailService) SendWelcome(ctx context.Context, to, name string) error {
	var body bytes.Buffer
	if err := welcomeMailTemplate.Execute(&body, welcomeMailData{Name: name}); err != nil {
		return fmt.Errorf("failed to render welcome email: %w", err)
	}
	return s.send(ctx, to, "🌱 Welcome to Smart Waste Management System!", body.String())
}

func (s *EmailService) send(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if to == "" {
		return fmt.Errorf("no recipient address")
	}

	if !s.cfg.Configured() {
		s.logToConsole(to, subject, html)
		return nil
	}

	msg := buildMessage(s.cfg.From, to, subject, html)
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)

	log.Printf("📤 Sending email to: %s", to)
	if err := s.sendMail(addr, auth, s.cfg.From, []string{to}, msg); err != nil {
		log.Printf("❌ Failed to send email to %s: %v", to, err)
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	log.Printf("✅ Email sent successfully to %s", to)
	return nil
}

func (s *EmailService) logToConsole(to, subject, html string) {
	log.Println("📧 EMAIL CONTENT (Console Mode):")
	log.Println("=====================================")
	log.Printf("Timestamp: %s", time.Now().UTC().Format(time.RFC3339))
	log.Printf("To: %s", to)
	log.Printf("Subject: %s", subject)
	log.Println("-------------------------------------")
	log.Println(html)
	log.Println("=====================================")
}

func buildMessage(from, to, subject, html string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: \"Smart Waste Management\" <%s>\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return []byte(b.String())
}

// groupThousands formats 50000 as 50,000
func groupThousands(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
