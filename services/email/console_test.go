package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/simcatalog/core"
)

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	ResetSentMessages()
	t.Cleanup(ResetSentMessages)
	svc := NewConsoleServiceMock(&core.Config{AppName: "Simcatalog", DefaultFromEmail: "noreply@localhost"})

	svc.SendMessages(
		&core.EmailMessage{
			To:      []mail.Address{{Name: "Ana", Address: "ana@example.com"}},
			Subject: "Olá",
			BodyStr: "corpo",
		},
		&core.EmailMessage{Subject: "sem destinatário", BodyStr: "ignorado"},
		&core.EmailMessage{To: []mail.Address{{Address: "bia@example.com"}}, Subject: "vazio"},
	)

	require.Len(t, SentMessages, 1)
	assert.Equal(t, "Olá", SentMessages[0].Subject)
	assert.Equal(t, "corpo", SentMessages[0].TextContent)
}

func TestConsoleService_joinAddresses(t *testing.T) {
	svc := newConsoleService(&core.Config{AppName: "Simcatalog"})
	got := svc.joinAddresses([]mail.Address{{Address: "a@x.com"}, {Name: "B", Address: "b@x.com"}})
	assert.Equal(t, `<a@x.com>, "B" <b@x.com>`, got)
}
