package mailer

import "fmt"

// Branded HTML bodies for the workflow emails. Copy and palette follow the
// foundation's existing mailings.

func layout(heading, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
  .container { max-width: 600px; margin: 0 auto; padding: 20px; }
  .header { background-color: #00305B; color: white; padding: 30px; text-align: center; }
  .content { padding: 30px; background-color: #f9f9f9; }
  .button { display: inline-block; padding: 12px 30px; background-color: #FEBC42;
            color: #00305B; text-decoration: none; border-radius: 5px; font-weight: bold; }
  .footer { padding: 20px; text-align: center; color: #666; font-size: 12px; }
</style>
</head>
<body>
<div class="container">
  <div class="header"><h1>%s</h1></div>
  <div class="content">%s</div>
  <div class="footer"><p>&copy; Local Supports Local Foundation. All rights reserved.</p></div>
</div>
</body>
</html>`, heading, body)
}

func button(url, label string) string {
	return fmt.Sprintf(`<a href="%s" class="button">%s</a>`, url, label)
}

// Welcome returns the registration confirmation email.
func Welcome(firstName, frontendURL string) (subject, html string) {
	subject = "Welcome to Local Supports Local Foundation!"
	body := fmt.Sprintf(`<h2>Hi %s,</h2>
<p>Thank you for joining the Local Supports Local Foundation as a realtor member!</p>
<p>Your account is currently pending approval. Our admin team will review your
registration within 24-48 hours and you'll receive an email once your account
is approved.</p>
<p>%s</p>
<p>Best regards,<br><strong>Local Supports Local Foundation Team</strong></p>`,
		firstName, button(frontendURL+"/login", "Go to Dashboard"))
	return subject, layout("Welcome to Local Supports Local!", body)
}

// AdminNewRegistration notifies an admin that a registration needs review.
func AdminNewRegistration(realtorName, realtorEmail, frontendURL string) (subject, html string) {
	subject = "New Realtor Registration"
	body := fmt.Sprintf(`<p>New realtor registration: <strong>%s</strong> (%s) requires approval.</p>
<p>%s</p>`, realtorName, realtorEmail, button(frontendURL+"/admin/realtors", "Review Registration"))
	return subject, layout("New Realtor Registration", body)
}

// AccountApproved is sent when an admin approves a registration.
func AccountApproved(firstName, frontendURL string) (subject, html string) {
	subject = "Your Account Has Been Approved!"
	body := fmt.Sprintf(`<h2>Congratulations %s!</h2>
<p>Your realtor account has been approved. You now have full access to the
dashboard: submit your monthly closed transactions, make donations, and review
grant applications.</p>
<p>%s</p>`, firstName, button(frontendURL+"/dashboard", "Go to Dashboard"))
	return subject, layout("Account Approved", body)
}

// AccountDenied is sent when an admin denies a registration.
func AccountDenied(firstName, reason string) (subject, html string) {
	subject = "Your Account Application"
	body := fmt.Sprintf(`<h2>Hi %s,</h2>
<p>We're sorry, but your realtor account application has been denied.</p>`, firstName)
	if reason != "" {
		body += fmt.Sprintf(`<p>Reason: %s</p>`, reason)
	}
	body += `<p>If you believe this is a mistake, please contact our team.</p>`
	return subject, layout("Account Application", body)
}

// PaymentRequest asks for the donation owed on a submitted period.
func PaymentRequest(firstName, periodLabel, amount, frontendURL string) (subject, html string) {
	subject = "Payment Requested for Monthly Donation"
	body := fmt.Sprintf(`<h2>Hi %s,</h2>
<p>Thank you for submitting your transactions! Your donation amount for
<strong>%s</strong> is <strong>%s</strong>. Please submit your payment.</p>
<p>%s</p>`, firstName, periodLabel, amount, button(frontendURL+"/donations/payment", "Make Payment"))
	return subject, layout("Payment Requested", body)
}

// ThankYou confirms a recorded donation payment.
func ThankYou(firstName, periodLabel, amount string) (subject, html string) {
	subject = "Thank You for Your Donation!"
	body := fmt.Sprintf(`<h2>Thank you, %s!</h2>
<p>Your %s donation for %s has been received. Your contribution helps local
families achieve homeownership.</p>`, firstName, amount, periodLabel)
	return subject, layout("Thank You!", body)
}

// MonthlyReminder nudges an approved realtor to report last month's closings.
func MonthlyReminder(firstName, periodLabel, frontendURL string) (subject, html string) {
	subject = "Monthly Transaction Report Reminder"
	body := fmt.Sprintf(`<h2>Hi %s,</h2>
<p>This is a friendly reminder to submit your closed transactions for
<strong>%s</strong>.</p>
<p>%s</p>`, firstName, periodLabel, button(frontendURL+"/transactions/submit", "Submit Transactions"))
	return subject, layout("Transaction Report Reminder", body)
}

// ApplicationConfirmation acknowledges a grant application to the applicant.
func ApplicationConfirmation(firstName string) (subject, html string) {
	subject = "Grant Application Received"
	body := fmt.Sprintf(`<h2>Hi %s,</h2>
<p>We've received your grant application. Our team reviews applications on a
rolling basis and will reach out with next steps.</p>`, firstName)
	return subject, layout("Application Received", body)
}

// AdminNewApplication alerts admins to a freshly submitted grant application.
func AdminNewApplication(applicantName, frontendURL string) (subject, html string) {
	subject = "New Grant Application"
	body := fmt.Sprintf(`<p>New grant application from <strong>%s</strong> awaiting review.</p>
<p>%s</p>`, applicantName, button(frontendURL+"/admin/applications", "Review Application"))
	return subject, layout("New Grant Application", body)
}
