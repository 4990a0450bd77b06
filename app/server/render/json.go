package render

import (
	"github.com/favbox/breeze/common/json"
	"github.com/favbox/breeze/protocol"
)

var jsonContentType = "application/json; charset=utf-8"

var jsonMarshalFunc JSONMarshaler = json.Marshal

// JSONMarshaler 自定义 json.Marshal。
type JSONMarshaler func(v any) ([]byte, error)

// ResetJSONMarshal 重置 JSON 编码函数为给定的 fn。
func ResetJSONMarshal(fn JSONMarshaler) {
	jsonMarshalFunc = fn
}

// JSONRender 是紧凑的 JSON 渲染器。
type JSONRender struct {
	Data any
}

func (r JSONRender) Render(resp *protocol.Response) error {
	writeContentType(resp, jsonContentType)
	b, err := jsonMarshalFunc(r.Data)
	if err != nil {
		return err
	}
	_, err = resp.Write(b)
	return err
}

func (r JSONRender) WriteContentType(resp *protocol.Response) {
	writeContentType(resp, jsonContentType)
}

// IndentedJSON 是带缩进的 JSON 渲染器。
type IndentedJSON struct {
	Data any
}

func (r IndentedJSON) Render(resp *protocol.Response) error {
	writeContentType(resp, jsonContentType)
	b, err := json.MarshalIndent(r.Data, "", "    ")
	if err != nil {
		return err
	}
	_, err = resp.Write(b)
	return err
}

func (r IndentedJSON) WriteContentType(resp *protocol.Response) {
	writeContentType(resp, jsonContentType)
}
