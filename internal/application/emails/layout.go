package emails

import (
	"fmt"
	"html"
	"time"
)

const (
	themePrimary   = "#2F6B4F"
	themeTextMain  = "#1F2937"
	themeTextMuted = "#6B7280"
	themeBgBody    = "#F3F4F6"
	themeWhite     = "#FFFFFF"
)

// EmailLayout wraps content in the shared branded HTML shell.
func EmailLayout(contentHTML string, siteURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Handover</title>
  <style>
    body { margin: 0; padding: 0; background-color: %[1]s; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; color: %[2]s; }
    .content-body p { margin: 0 0 20px 0; font-size: 16px; line-height: 1.6; }
    .content-body h1 { font-size: 22px; margin: 0 0 18px 0; }
    .cta-button { display: inline-block; background-color: %[3]s; color: #ffffff !important; padding: 12px 28px; text-decoration: none; border-radius: 6px; font-weight: 600; }
    .footer-text { color: %[4]s; font-size: 13px; }
  </style>
</head>
<body>
  <table role="presentation" width="100%%" cellspacing="0" cellpadding="0" style="background-color: %[1]s;">
    <tr>
      <td align="center" style="padding: 40px 0;">
        <table role="presentation" width="600" cellspacing="0" cellpadding="0" style="background-color: %[5]s; border-radius: 8px;">
          <tr><td align="center" style="padding: 36px 0 24px 0; font-size: 24px; font-weight: 700; color: %[3]s;">Handover</td></tr>
          <tr><td class="content-body" style="padding: 0 48px 30px 48px;">%[6]s</td></tr>
          <tr>
            <td align="center" style="padding: 24px 48px 36px 48px;">
              <p class="footer-text">&copy; %[7]d Handover. Give what you no longer need.</p>
              <p class="footer-text"><a href="%[8]s" style="color: %[4]s;">%[8]s</a></p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`,
		themeBgBody, themeTextMain, themePrimary, themeTextMuted, themeWhite,
		contentHTML, time.Now().Year(), html.EscapeString(siteURL))
}

func welcomeContent(firstName, siteURL string) string {
	return fmt.Sprintf(`
    <h1>Welcome, %s!</h1>
    <p>Your account is ready. You can now list things you no longer need and find a new home for them, or browse what your neighbours are giving away.</p>
    <center><a href="%s" class="cta-button">Browse listings</a></center>
    <p style="margin-top: 20px; font-size: 14px; color: #666;">If you did not sign up for this account, please reply to this email.</p>
`, html.EscapeString(firstName), html.EscapeString(siteURL))
}

func donationContent(firstName, listingTitle, siteURL string) string {
	return fmt.Sprintf(`
    <h1>Good news, %s</h1>
    <p><strong>%s</strong> has been marked as donated to you.</p>
    <p>Use your inbox to agree on the collection details with the donor before the collection deadline.</p>
    <center><a href="%s" class="cta-button">Open inbox</a></center>
`, html.EscapeString(firstName), html.EscapeString(listingTitle), html.EscapeString(siteURL))
}
