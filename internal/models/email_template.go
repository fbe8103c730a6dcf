package models

// EmailTemplate defines the structure for email templates stored in the DB.
// Subject and Text are text/template sources, HTML is an html/template source.
type EmailTemplate struct {
	Base       `bson:",inline"`
	TemplateID string `bson:"templateId" json:"templateId"` // e.g., "welcome", "invoice"
	Locale     string `bson:"locale" json:"locale"`         // e.g., "en-US"
	Subject    string `bson:"subject" json:"subject"`
	Text       string `bson:"text" json:"text"`
	HTML       string `bson:"html,omitempty" json:"html,omitempty"`
}
