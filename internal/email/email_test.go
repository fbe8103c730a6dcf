package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simplyinvoicing/api/internal/config"
	"simplyinvoicing/api/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		SmtpHost:        "smtp.example.com",
		SmtpPort:        587,
		SmtpFromAddress: "invoices@example.com",
		SmtpFromName:    "Simply Invoicing",
	}
}

func testMessage() *Message {
	return &Message{
		To:      []string{"client@example.com"},
		Subject: "Invoice INV-00001",
		Text:    "Amount due: 23.63",
		HTML:    "<p>Amount due: <b>23.63</b></p>",
		Kind:    "invoice",
	}
}

func TestBuild_MultipartAlternative(t *testing.T) {
	msg := testMessage()
	msg.From = "invoices@example.com"

	raw, err := Build(msg, "<abc@example.com>", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	s := string(raw)

	assert.Contains(t, s, "To: client@example.com\r\n")
	assert.Contains(t, s, "Message-ID: <abc@example.com>\r\n")
	assert.Contains(t, s, "Content-Type: multipart/alternative; boundary=")
	assert.Contains(t, s, "Content-Type: text/plain; charset=utf-8")
	assert.Contains(t, s, "Content-Type: text/html; charset=utf-8")
	assert.Contains(t, s, "Amount due: 23.63")
	assert.True(t, strings.Index(s, "text/plain") < strings.Index(s, "text/html"), "plain part must come first")
}

func TestBuild_NoRecipients(t *testing.T) {
	_, err := Build(&Message{Subject: "x"}, "<id@x>", time.Now())
	assert.ErrorIs(t, err, ErrInvalidEnvelope)
}

func TestNewMessageID(t *testing.T) {
	id := NewMessageID("invoices@example.com")
	assert.True(t, strings.HasPrefix(id, "<"))
	assert.True(t, strings.HasSuffix(id, "@example.com>"))
	assert.True(t, strings.HasSuffix(NewMessageID(""), "@localhost>"))
}

func TestClassify(t *testing.T) {
	authErr := classify(&textproto.Error{Code: 535, Msg: "5.7.8 Authentication credentials invalid"})
	assert.ErrorIs(t, authErr, ErrAuth)

	envErr := classify(&textproto.Error{Code: 550, Msg: "5.1.1 No such user"})
	assert.ErrorIs(t, envErr, ErrInvalidEnvelope)

	other := errors.New("connection refused")
	assert.Equal(t, other, classify(other))
	assert.Nil(t, classify(nil))

	assert.Contains(t, UserMessage(authErr), "authentication")
	assert.Contains(t, UserMessage(envErr), "recipient")
	assert.Contains(t, UserMessage(other), "try again")
}

func TestSMTPSender_Send(t *testing.T) {
	cfg := testConfig()
	sender := NewSMTPSender(cfg).(*SMTPSender)

	var gotFrom string
	var gotTo []string
	var gotRaw []byte
	sender.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		assert.Equal(t, "smtp.example.com:587", addr)
		gotFrom, gotTo, gotRaw = from, to, msg
		return nil
	}

	id, err := sender.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Contains(t, id, "@example.com>")
	assert.Equal(t, "invoices@example.com", gotFrom)
	assert.Equal(t, []string{"client@example.com"}, gotTo)
	assert.Contains(t, string(gotRaw), "Message-ID: "+id)
}

func TestSMTPSender_CategorisesErrors(t *testing.T) {
	sender := NewSMTPSender(testConfig()).(*SMTPSender)
	sender.send = func(string, smtp.Auth, string, []string, []byte) error {
		return &textproto.Error{Code: 535, Msg: "bad credentials"}
	}

	_, err := sender.Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, ErrAuth)
}

func TestNewSMTPSender_FallsBackToLogging(t *testing.T) {
	sender := NewSMTPSender(&config.Config{SmtpFromAddress: "a@b.test"})
	_, ok := sender.(*LoggingSender)
	require.True(t, ok)

	id, err := sender.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Contains(t, id, "@b.test>")
}

func TestRedisSender_StoresMockEmail(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	sender := NewRedisSender(rdb, testConfig())
	msg := testMessage()
	msg.To = []string{"Client@Example.com"}

	id, err := sender.Send(context.Background(), msg)
	require.NoError(t, err)

	raw, err := mr.Get(MockEmailKey("client@example.com", "invoice"))
	require.NoError(t, err)

	var stored map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, "Invoice INV-00001", stored["subject"])
	assert.Equal(t, id, stored["messageId"])
	assert.Equal(t, "invoices@example.com", stored["from"])

	ttl := mr.TTL(MockEmailKey("client@example.com", "invoice"))
	assert.Equal(t, MockEmailTTL, ttl)
}

func TestFileEmailSender_AppendsMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mail", "emails.log")
	sender, err := NewFileEmailSender(path, testConfig())
	require.NoError(t, err)

	_, err = sender.Send(context.Background(), testMessage())
	require.NoError(t, err)
	_, err = sender.Send(context.Background(), testMessage())
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(content), "--- End Logged Email ---"))

	_, err = NewFileEmailSender("  ", testConfig())
	assert.Error(t, err)
}

type stubSender struct {
	id  string
	err error
}

func (s stubSender) Send(ctx context.Context, msg *Message) (string, error) {
	return s.id, s.err
}

func TestCompositeEmailSender(t *testing.T) {
	_, err := NewCompositeEmailSender().Send(context.Background(), testMessage())
	assert.Error(t, err)

	single := NewCompositeEmailSender(stubSender{err: ErrAuth})
	_, err = single.Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, ErrAuth)

	multi := NewCompositeEmailSender(stubSender{id: "<1@x>"})
	multi.AddSender(stubSender{err: ErrInvalidEnvelope})
	multi.AddSender(nil)
	id, err := multi.Send(context.Background(), testMessage())
	assert.Equal(t, "<1@x>", id)
	assert.NoError(t, err)

	logFirst := NewCompositeEmailSender(stubSender{err: ErrInvalidEnvelope}, stubSender{id: "<2@x>"})
	id, err = logFirst.Send(context.Background(), testMessage())
	assert.Equal(t, "<2@x>", id)
	assert.NoError(t, err)

	allFail := NewCompositeEmailSender(stubSender{err: ErrAuth}, stubSender{err: ErrInvalidEnvelope})
	id, err = allFail.Send(context.Background(), testMessage())
	assert.Empty(t, id)
	assert.ErrorIs(t, err, ErrAuth)
}

func TestRender(t *testing.T) {
	tmpl := &models.EmailTemplate{
		TemplateID: "invoice",
		Subject:    "Invoice {{.Number}} from {{.Company}}",
		Text:       "Total: {{money .Total}} due {{date .Due}}",
		HTML:       "<p>{{.Company}}</p><p>{{money .Total}}</p>",
	}
	data := map[string]interface{}{
		"Number":  "INV-00001",
		"Company": "Smith & Sons <Ltd>",
		"Total":   decimal.RequireFromString("23.625"),
		"Due":     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	out, err := Render(tmpl, data)
	require.NoError(t, err)
	assert.Equal(t, "Invoice INV-00001 from Smith & Sons <Ltd>", out.Subject)
	assert.Equal(t, "Total: 23.63 due 1 Mar 2026", out.Text)
	assert.Contains(t, out.HTML, "Smith &amp; Sons &lt;Ltd&gt;")

	_, err = Render(&models.EmailTemplate{TemplateID: "bad", Subject: "{{.Missing"}, data)
	assert.Error(t, err)
}
