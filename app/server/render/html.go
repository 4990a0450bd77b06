package render

import (
	"bytes"
	"html/template"

	"github.com/favbox/breeze/protocol"
)

var htmlContentType = "text/html; charset=utf-8"

// HTML 包含模板名称、模板和所需的数据。
type HTML struct {
	Template *template.Template
	Name     string
	Data     any
}

// Render 执行模板，模板出错时不写入任何正文。
func (r HTML) Render(resp *protocol.Response) error {
	writeContentType(resp, htmlContentType)

	var buf bytes.Buffer
	var err error
	if r.Name == "" {
		err = r.Template.Execute(&buf, r.Data)
	} else {
		err = r.Template.ExecuteTemplate(&buf, r.Name, r.Data)
	}
	if err != nil {
		return err
	}
	_, err = resp.Write(buf.Bytes())
	return err
}

// WriteContentType 写入 HTML 内容类型。
func (r HTML) WriteContentType(resp *protocol.Response) {
	writeContentType(resp, htmlContentType)
}

// HTMLRender 按名称生成 HTML 渲染实例。
type HTMLRender interface {
	Instance(name string, data any) Render
	Close() error
}

// HTMLProduction 是使用预先解析模板的 HTML 渲染器。
type HTMLProduction struct {
	Template *template.Template
}

func (r HTMLProduction) Instance(name string, data any) Render {
	return HTML{
		Template: r.Template,
		Name:     name,
		Data:     data,
	}
}

func (r HTMLProduction) Close() error {
	return nil
}
