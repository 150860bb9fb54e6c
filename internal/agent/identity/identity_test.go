package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
)

func TestExtractPhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Benim paketim nedir? 0555 123 45 67", "+905551234567"},
		{"numaram 05551234567", "+905551234567"},
		{"numaram05551234567", "+905551234567"},
		{"tel:0555 123 45 67.", "+905551234567"},
		{"+90 555 123 45 67 bu benim", "+905551234567"},
		{"+905551234567", "+905551234567"},
		{"0555-123-45-67", "+905551234567"},
		{"0212 123 45 67 sabit hat", ""},
		{"merhaba", ""},
		{"sipariş 1234567890", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ExtractPhone(c.in), "input %q", c.in)
	}
}

func TestExtractCustomerID(t *testing.T) {
	assert.Equal(t, "MSTR001", ExtractCustomerID("müşteri no mstr001"))
	assert.Equal(t, "MSTR12345", ExtractCustomerID("MSTR12345 faturam"))
	assert.Equal(t, "", ExtractCustomerID("MSTR01"))
}

func TestExtractPrefersPhone(t *testing.T) {
	assert.Equal(t, "+905551234567", Extract("MSTR001 ve 0555 123 45 67"))
	assert.Equal(t, "MSTR001", Extract("MSTR001"))
	assert.True(t, IsPhone("+905551234567"))
	assert.False(t, IsPhone("MSTR001"))
}

func TestResolvePriority(t *testing.T) {
	linkCalls := 0
	link := func() string { linkCalls++; return "+905559998877" }
	history := []model.Message{
		{Role: model.RoleUser, Content: "numaram 0532 111 22 33"},
		{Role: model.RoleAssistant, Content: "Teşekkürler"},
	}

	id, src := Resolve("paketim 0555 123 45 67", model.UserContext{model.ContextPhoneNumber: "+905550000000"}, link, history, 5)
	assert.Equal(t, "+905551234567", id)
	assert.Equal(t, SourceQuestion, src)
	assert.Zero(t, linkCalls)

	id, src = Resolve("faturam?", model.UserContext{model.ContextPhoneNumber: "+905550000000"}, link, history, 5)
	assert.Equal(t, "+905550000000", id)
	assert.Equal(t, SourceUserContext, src)

	id, src = Resolve("faturam?", nil, link, history, 5)
	assert.Equal(t, "+905559998877", id)
	assert.Equal(t, SourceLink, src)

	id, src = Resolve("faturam?", nil, func() string { return "" }, history, 5)
	assert.Equal(t, "+905321112233", id)
	assert.Equal(t, SourceHistory, src)

	id, src = Resolve("faturam?", nil, nil, nil, 5)
	assert.Empty(t, id)
	assert.Equal(t, SourceNone, src)
}

func TestResolveHistoryWindow(t *testing.T) {
	history := []model.Message{{Role: model.RoleUser, Content: "0532 111 22 33"}}
	for i := 0; i < 5; i++ {
		history = append(history, model.Message{Role: model.RoleAssistant, Content: "..."})
	}
	id, _ := Resolve("faturam?", nil, nil, history, 5)
	assert.Empty(t, id)
}

func TestAlreadyAsked(t *testing.T) {
	marker := "telefon numaranızı"
	asked := []model.Message{
		{Role: model.RoleUser, Content: "faturam ne kadar"},
		{Role: model.RoleAssistant, Content: "Kişisel bilgilerinize erişebilmem için TELEFON NUMARANIZI belirtiniz."},
		{Role: model.RoleUser, Content: "neden"},
	}
	assert.True(t, AlreadyAsked(asked, marker, 4))

	userSaid := []model.Message{{Role: model.RoleUser, Content: "telefon numaranızı neden istiyorsunuz"}}
	assert.False(t, AlreadyAsked(userSaid, marker, 4))
	assert.False(t, AlreadyAsked(nil, marker, 4))
}
