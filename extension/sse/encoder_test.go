package sse

import (
	"bytes"
	"testing"

	"github.com/favbox/breeze/common/json"
	"github.com/stretchr/testify/assert"
)

type payload struct {
	A int
	B string `json:"value"`
}

func TestAppendEvent(t *testing.T) {
	t.Parallel()
	data, err := json.Marshal(payload{A: 1, B: "x"})
	assert.Nil(t, err)

	tests := []struct {
		name  string
		event *Event
		want  string
	}{
		{
			name:  "只有数据",
			event: &Event{Data: []byte("junk\n\njk\nid:fake")},
			want:  "data:junk\ndata:\ndata:jk\ndata:id:fake\n\n",
		},
		{
			name:  "事件名中的换行被转义",
			event: &Event{Event: "t\n:<>\r\test", Data: []byte("a")},
			want:  "event:t\\n:<>\\r\test\ndata:a\n\n",
		},
		{
			name:  "全部字段",
			event: &Event{ID: "7", Event: "chat", Retry: 11, Data: data},
			want:  "id:7\nevent:chat\nretry:11\ndata:{\"A\":1,\"value\":\"x\"}\n\n",
		},
		{
			name:  "空事件",
			event: &Event{},
			want:  "data:\n\n",
		},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, string(AppendEvent(nil, tt.event)), tt.name)
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	assert.Nil(t, Encode(&buf, &Event{ID: "1", Data: []byte("hi")}))
	assert.Equal(t, "id:1\ndata:hi\n\n", buf.String())
}
