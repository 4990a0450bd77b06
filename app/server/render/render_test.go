package render

import (
	"errors"
	"html/template"
	"testing"

	"github.com/favbox/breeze/common/json"
	"github.com/favbox/breeze/common/ut"
	"github.com/favbox/breeze/protocol"
	"github.com/favbox/breeze/protocol/consts"
	"github.com/stretchr/testify/assert"
)

func perform(h func(resp *protocol.Response)) (int, *protocol.Header, string) {
	w := ut.PerformRequest(protocol.HandlerFunc(func(req *protocol.Request, resp *protocol.Response) {
		h(resp)
	}), "GET", "/", nil)
	code, header, body := w.Result()
	return code, header, string(body)
}

func TestJSON(t *testing.T) {
	t.Parallel()
	code, header, body := perform(func(resp *protocol.Response) {
		assert.Nil(t, JSON(resp, consts.StatusCreated, map[string]any{"a": 1}))
	})
	assert.Equal(t, consts.StatusCreated, code)
	assert.Equal(t, jsonContentType, header.Get(consts.HeaderContentType))
	assert.Equal(t, `{"a":1}`, body)
}

func TestIndentedJSON(t *testing.T) {
	t.Parallel()
	_, _, body := perform(func(resp *protocol.Response) {
		assert.Nil(t, Write(resp, consts.StatusOK, IndentedJSON{Data: map[string]int{"a": 1}}))
	})
	assert.Equal(t, "{\n    \"a\": 1\n}", body)
}

func TestJSONMarshalError(t *testing.T) {
	boom := errors.New("boom")
	ResetJSONMarshal(func(any) ([]byte, error) { return nil, boom })
	defer ResetJSONMarshal(json.Marshal)

	code, _, body := perform(func(resp *protocol.Response) {
		assert.ErrorIs(t, JSON(resp, consts.StatusOK, 1), boom)
	})
	assert.Equal(t, consts.StatusInternalServerError, code)
	assert.Equal(t, "boom", body)
}

func TestText(t *testing.T) {
	t.Parallel()
	code, header, body := perform(func(resp *protocol.Response) {
		assert.Nil(t, Text(resp, consts.StatusOK, "hello %s", "breeze"))
	})
	assert.Equal(t, consts.StatusOK, code)
	assert.Equal(t, plainContentType, header.Get(consts.HeaderContentType))
	assert.Equal(t, "hello breeze", body)

	_, _, body = perform(func(resp *protocol.Response) {
		assert.Nil(t, Text(resp, consts.StatusOK, "100%"))
	})
	assert.Equal(t, "100%", body)
}

func TestData(t *testing.T) {
	t.Parallel()
	_, header, body := perform(func(resp *protocol.Response) {
		assert.Nil(t, Write(resp, consts.StatusOK, Data{ContentType: consts.MIMEOctetStream, Data: []byte{1, 2}}))
	})
	assert.Equal(t, consts.MIMEOctetStream, header.Get(consts.HeaderContentType))
	assert.Equal(t, "\x01\x02", body)
}

func TestHTML(t *testing.T) {
	t.Parallel()
	tmpl := template.Must(template.New("page").Parse(`<p>{{.}}</p>`))
	r := HTMLProduction{Template: tmpl}
	assert.Nil(t, r.Close())

	_, header, body := perform(func(resp *protocol.Response) {
		assert.Nil(t, Write(resp, consts.StatusOK, r.Instance("page", "<b>")))
	})
	assert.Equal(t, htmlContentType, header.Get(consts.HeaderContentType))
	assert.Equal(t, "<p>&lt;b&gt;</p>", body)

	code, _, _ := perform(func(resp *protocol.Response) {
		assert.NotNil(t, Write(resp, consts.StatusOK, r.Instance("missing", nil)))
	})
	assert.Equal(t, consts.StatusInternalServerError, code)
}
