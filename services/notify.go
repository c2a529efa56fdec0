package services

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"taycan-tracker/config"
	"taycan-tracker/models"
	"taycan-tracker/utils"
)

// Sender delivers a rendered notification. Actual dispatch (SMTP, an API,
// a mail relay) lives outside the engine; the default sink writes the
// message next to the export so any delivery hook can pick it up.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

// FileSender writes notifications to a directory instead of sending them.
type FileSender struct {
	Dir    string
	Logger *utils.Logger
}

func (f *FileSender) Send(to, subject, htmlBody string) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("notify: mkdir: %w", err)
	}
	path := filepath.Join(f.Dir, "notification.html")
	content := fmt.Sprintf("<!-- To: %s -->\n<!-- Subject: %s -->\n%s", to, subject, htmlBody)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("notify: write: %w", err)
	}
	f.Logger.Info("[notify] Wrote notification for %q to %s", subject, path)
	return nil
}

// Notifier renders new-listing alerts from the scan result alone, without
// re-querying the store.
type Notifier struct {
	criteria *config.Criteria
	sender   Sender
	logger   *utils.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(criteria *config.Criteria, sender Sender, logger *utils.Logger) *Notifier {
	return &Notifier{criteria: criteria, sender: sender, logger: logger}
}

// Notify sends an alert when the scan surfaced new listings; otherwise it is
// a no-op.
func (n *Notifier) Notify(result *models.ScanResult) error {
	count := result.NewCount()
	if count == 0 {
		n.logger.Info("[notify] No new listings, skipping notification")
		return nil
	}
	if n.criteria.NotifyEmail == "" {
		n.logger.Warn("[notify] %d new listings but no notify_email configured", count)
		return nil
	}

	subject := n.Subject(count)
	body := n.RenderHTML(result.NewListings)
	return n.sender.Send(n.criteria.NotifyEmail, subject, body)
}

// Subject builds the alert subject line.
func (n *Notifier) Subject(count int) string {
	plural := ""
	if count > 1 {
		plural = "s"
	}
	return fmt.Sprintf("%d new %s listing%s found", count, n.criteria.ModelName, plural)
}

// RenderHTML builds the alert body: one block per new listing with the key
// figures, premium options called out, and the registration-year target
// flagged.
func (n *Notifier) RenderHTML(listings []*models.Listing) string {
	var b strings.Builder
	b.WriteString("<html><body style=\"font-family:Helvetica,Arial,sans-serif;color:#1a1a1a\">\n")
	fmt.Fprintf(&b, "<h2>%d new %s listing(s)</h2>\n", len(listings), html.EscapeString(n.criteria.ModelName))

	for _, l := range listings {
		b.WriteString("<div style=\"border:1px solid #ddd;border-radius:8px;padding:16px;margin:12px 0\">\n")
		if l.ImageURL != "" {
			fmt.Fprintf(&b, "<img src=%q alt=\"listing\" style=\"max-width:100%%;border-radius:4px\">\n", upscaleImage(l.ImageURL))
		}
		fmt.Fprintf(&b, "<h3>%s / %s interior</h3>\n",
			html.EscapeString(orNA(l.ExteriorColor)), html.EscapeString(orNA(l.InteriorColor)))

		b.WriteString("<ul>\n")
		fmt.Fprintf(&b, "<li>Price: %s</li>\n", html.EscapeString(orNA(l.PriceText)))
		fmt.Fprintf(&b, "<li>Mileage: %s</li>\n", html.EscapeString(orNA(l.Mileage)))
		reg := orNA(l.RegistrationDate)
		if l.RegistrationYear != nil && *l.RegistrationYear >= n.criteria.TargetYear {
			reg += fmt.Sprintf(" (meets %d+ target)", n.criteria.TargetYear)
		}
		fmt.Fprintf(&b, "<li>Registered: %s</li>\n", html.EscapeString(reg))
		owners := "N/A"
		if l.PreviousOwners != nil {
			owners = fmt.Sprintf("%d", *l.PreviousOwners)
		}
		fmt.Fprintf(&b, "<li>Owners: %s</li>\n", owners)
		fmt.Fprintf(&b, "<li>Dealer: %s</li>\n", html.EscapeString(orNA(l.Dealer)))
		if premium := n.PremiumOptions(l); len(premium) > 0 {
			fmt.Fprintf(&b, "<li>Premium options: %s</li>\n", html.EscapeString(strings.Join(premium, ", ")))
		}
		b.WriteString("</ul>\n")
		fmt.Fprintf(&b, "<p><a href=%q>View listing</a></p>\n", l.DetailURL)
		b.WriteString("</div>\n")
	}

	if n.criteria.DashboardURL != "" {
		fmt.Fprintf(&b, "<p><a href=%q>Dashboard</a></p>\n", n.criteria.DashboardURL)
	}
	b.WriteString("</body></html>\n")
	return b.String()
}

// PremiumOptions filters a listing's full equipment for options matching the
// configured premium keywords.
func (n *Notifier) PremiumOptions(l *models.Listing) []string {
	all := make([]string, 0)
	eq := l.Equipment
	for _, list := range [][]string{
		eq.Exterior, eq.Transmission, eq.Wheels, eq.Interior,
		eq.Audio, eq.EMobility, eq.Lighting, eq.Assistance,
	} {
		all = append(all, list...)
	}

	var premium []string
	for _, item := range all {
		for _, kw := range n.criteria.PremiumOpts {
			if strings.Contains(strings.ToLower(item), strings.ToLower(kw)) {
				premium = append(premium, item)
				break
			}
		}
	}
	return premium
}

// upscaleImage swaps the thumbnail size segment for a larger rendition.
func upscaleImage(url string) string {
	url = strings.ReplaceAll(url, "/320.", "/640.")
	return strings.ReplaceAll(url, "/320/", "/640/")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
