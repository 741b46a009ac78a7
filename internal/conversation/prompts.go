package conversation

// Customer-facing prompt text for each step of the guided flow. Replies with
// blanks are filled by the engine via fmt.Sprintf.
const (
	promptWelcome = "Welcome to Consigned By Design!\n\nReply with:\n- DELIVERY - for delivery of purchased items\n- PICKUP - for us to pick up items you're selling"

	promptAskName = "Great! Let's get your information.\n\nWhat is your full name?"

	promptAskPhone = "Thanks, %s!\n\nWhat phone number should we use to contact you about scheduling? (You can reply SAME if it's this number)"

	promptAskAddress = "Got it! What is your street address?\n\nExample: 123 Main Street"

	promptAskCityZip = "Thanks! Now what is your city and ZIP code?\n\nExample: Indianapolis, 46220"

	promptAskItem = "What item did you purchase? Please describe it briefly.\n\nExample: Oak dresser, Vintage lamp, etc."

	promptItemFound = "Found your order!\n\n%s\nSKU: %s\nOrder #%s\n\nDo you have stairs at your location?\n\nReply YES or NO"

	promptItemNotFound = "We couldn't find an exact match in recent orders, but no worries - we'll look it up!\n\nDo you have stairs at your location?\n\nReply YES or NO"

	promptAskStairs = "Last question! Do you have stairs at your location?\n\nReply YES or NO"

	promptCompletedDelivery = "Your delivery request has been submitted!\n\nWe'll review it and get back to you soon.\n\nFor scheduling questions, text or call our scheduler:\n%s\n\nThank you for choosing Consigned By Design!"

	promptCompletedPickup = "Your pickup request has been submitted!\n\nOur team will review it and contact you about scheduling.\n\nFor questions, text or call our scheduler:\n%s\n\nThank you for choosing Consigned By Design!"

	promptCancelled = "Your request has been cancelled. Reply DELIVERY or PICKUP to start a new request."

	repromptName    = "Please enter your full name (first and last)."
	repromptPhone   = "Please enter a valid 10-digit phone number, or reply SAME to use this number."
	repromptAddress = "Please enter your full street address."
	repromptCityZip = "Please include a valid 5-digit ZIP code (e.g., Indianapolis, 46220)"
	repromptItem    = "Please describe the item you purchased (e.g., oak dresser, vintage lamp)."
	repromptStairs  = "Please reply YES or NO - do you have stairs at your location?"
)
