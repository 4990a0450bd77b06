package protocol

import (
	"bytes"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/favbox/breeze/common/bytebufferpool"
	errs "github.com/favbox/breeze/common/errors"
	"github.com/favbox/breeze/common/hlog"
	"github.com/favbox/breeze/common/utils"
	"github.com/favbox/breeze/internal/bytesconv"
	"github.com/favbox/breeze/internal/nocopy"
	"github.com/favbox/breeze/protocol/consts"
)

// ParseStatus 是请求的解析状态。
type ParseStatus int

const (
	WaitForRequestLine ParseStatus = iota
	WaitForHeaders
	WaitForBody
	Complete
	Aborted
)

var parseStatusNames = [...]string{
	WaitForRequestLine: "Wait for Request",
	WaitForHeaders:     "Wait for Header",
	WaitForBody:        "Wait for Body",
	Complete:           "Complete",
	Aborted:            "Abort",
}

func (s ParseStatus) String() string {
	if s < 0 || int(s) >= len(parseStatusNames) {
		return "Unknown"
	}
	return parseStatusNames[s]
}

// Limits 约束单个请求的资源用量。
type Limits struct {
	// MaxRequestSize 是请求行、标头与非多部分正文累计的字节上限。
	MaxRequestSize int
	// MaxMultipartSize 是多部分正文的字节上限。
	MaxMultipartSize int
	// TempDir 是多部分正文及上传文件的暂存目录，空串代表 os.TempDir()。
	TempDir string
}

// DefaultLimits 返回默认的请求资源约束。
func DefaultLimits() Limits {
	return Limits{
		MaxRequestSize:   consts.DefaultMaxRequestSize,
		MaxMultipartSize: consts.DefaultMaxMultipartSize,
	}
}

// UploadedFile 是多部分表单中已落盘的上传文件。
type UploadedFile struct {
	// Name 是表单字段名。
	Name string
	// FileName 是客户端声明的文件名。
	FileName string
	// ContentType 是该部分声明的内容类型。
	ContentType string
	// Path 是暂存文件的路径，请求清理时删除。
	Path string
	Size int64
}

// Open 打开暂存文件以供读取。
func (f *UploadedFile) Open() (*os.File, error) {
	return os.Open(f.Path)
}

// Request 表示一个增量解析中的 HTTP 请求。
//
// 由所属连接独占，对处理器只读。禁止拷贝，不能用于并发协程。
type Request struct {
	noCopy nocopy.NoCopy

	limits  Limits
	status  ParseStatus
	err     error
	created time.Time

	method  string
	uri     string
	path    string
	query   string
	version string

	header  Header
	params  Args
	cookies map[string]string
	body    *bytebufferpool.ByteBuffer
	files   map[string]*UploadedFile

	line     []byte
	consumed int
	expected int

	boundary string
	spool    *os.File
	spooled  int
}

// NewRequest 创建一个等待请求行的空请求。
func NewRequest(limits Limits) *Request {
	return &Request{
		limits:  limits,
		created: time.Now(),
		cookies: make(map[string]string),
	}
}

// Feed 消费 data 直至请求解析完成、中止或数据耗尽，返回已消费的字节数。
//
// 未消费的字节属于下一个请求。
func (req *Request) Feed(data []byte) int {
	n := 0
	for n < len(data) && !req.Done() {
		switch req.status {
		case WaitForRequestLine, WaitForHeaders:
			line, m, ok := req.readLine(data[n:])
			n += m
			req.consumed += m
			if !ok {
				break
			}
			if req.status == WaitForRequestLine {
				req.parseRequestLine(line)
			} else {
				req.parseHeaderLine(line)
			}
		case WaitForBody:
			n += req.readBody(data[n:])
		}

		if req.status != Aborted && req.consumed > req.limits.MaxRequestSize {
			hlog.SystemLogger().Debugf("请求超过大小限制：已读=%d 上限=%d", req.consumed, req.limits.MaxRequestSize)
			req.abort(errs.ErrBodyTooLarge)
		}
	}
	return n
}

// 读取一行，不足一行时暂存并等待更多数据。返回去除首尾空白的行及消费的字节数。
func (req *Request) readLine(data []byte) (string, int, bool) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		req.line = append(req.line, data...)
		return "", len(data), false
	}
	req.line = append(req.line, data[:i]...)
	line := string(bytes.TrimSpace(req.line))
	req.line = req.line[:0]
	return line, i + 1, true
}

func (req *Request) parseRequestLine(line string) {
	// 忽略请求之间多余的空行
	if line == "" {
		return
	}

	parts := strings.Split(line, " ")
	if len(parts) != 3 || !strings.Contains(parts[2], "HTTP") {
		hlog.SystemLogger().Debugf("请求行格式错误：%q", line)
		req.abort(errs.ErrBadRequestLine)
		return
	}

	req.method = parts[0]
	req.uri = parts[1]
	req.path = req.uri
	if i := strings.IndexByte(req.uri, '?'); i >= 0 {
		req.path = req.uri[:i]
		req.query = req.uri[i+1:]
	}
	req.version = parts[2]
	req.status = WaitForHeaders
}

func (req *Request) parseHeaderLine(line string) {
	if line == "" {
		req.endHeaders()
		return
	}
	if i := strings.IndexByte(line, ':'); i > 0 {
		req.header.Add(strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]))
		return
	}
	// 续行
	req.header.fold(line)
}

func (req *Request) endHeaders() {
	ct := req.header.Get(consts.HeaderContentType)
	if utils.HasPrefixFold(ct, consts.MIMEMultipartPOSTForm) {
		if i := utils.IndexFold(ct, "boundary="); i >= 0 {
			req.boundary = parseBoundary(ct[i+len("boundary="):])
		}
	}

	req.expected, _ = strconv.Atoi(strings.TrimSpace(req.header.Get(consts.HeaderContentLength)))
	if req.expected <= 0 {
		req.expected = 0
		req.complete()
		return
	}

	if req.boundary != "" {
		if req.expected > req.limits.MaxMultipartSize {
			hlog.SystemLogger().Debugf("多部分正文超过大小限制：声明=%d 上限=%d", req.expected, req.limits.MaxMultipartSize)
			req.abort(errs.ErrBodyTooLarge)
			return
		}
	} else if req.expected+req.consumed > req.limits.MaxRequestSize {
		hlog.SystemLogger().Debugf("正文超过大小限制：声明=%d 已读=%d 上限=%d", req.expected, req.consumed, req.limits.MaxRequestSize)
		req.abort(errs.ErrBodyTooLarge)
		return
	}
	req.status = WaitForBody
}

// 边界值可能带引号，也可能后跟其他参数。
func parseBoundary(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.Trim(strings.TrimSpace(s), `"`)
}

// 超过 1MB 的正文缓冲区用后即弃，不在池中常驻。
var bodyPool = bytebufferpool.NewPool(1 << 20)

func (req *Request) readBody(data []byte) int {
	if req.boundary != "" {
		return req.spoolBody(data)
	}

	if req.body == nil {
		req.body = bodyPool.Get()
	}
	m := min(req.expected-req.body.Len(), len(data))
	req.body.B = append(req.body.B, data[:m]...)
	req.consumed += m
	if req.body.Len() >= req.expected {
		req.complete()
	}
	return m
}

// 分块写入暂存文件，全部收到后解析多部分表单。
func (req *Request) spoolBody(data []byte) int {
	if req.spool == nil {
		f, err := os.CreateTemp(req.limits.TempDir, "breeze-multipart-*")
		if err != nil {
			hlog.SystemLogger().Errorf("创建多部分暂存文件失败：错误=%v", err)
			req.abort(errs.ErrSpoolFailed)
			return 0
		}
		req.spool = f
	}

	n := 0
	for n < len(data) && req.spooled < req.expected {
		m := min(consts.DefaultSpoolChunkSize, req.expected-req.spooled, len(data)-n)
		if _, err := req.spool.Write(data[n : n+m]); err != nil {
			hlog.SystemLogger().Errorf("写入多部分暂存文件失败：文件=%s 错误=%v", req.spool.Name(), err)
			req.abort(errs.ErrSpoolFailed)
			return n
		}
		n += m
		req.spooled += m
		if req.spooled > req.limits.MaxMultipartSize {
			req.abort(errs.ErrBodyTooLarge)
			return n
		}
	}

	if req.spooled >= req.expected {
		req.parseMultipart()
		req.removeSpool()
		req.complete()
	}
	return n
}

func (req *Request) complete() {
	req.status = Complete
	req.decodeParams()
	for _, v := range req.header.Values(consts.HeaderCookie) {
		parseRequestCookies(req.cookies, v)
	}
}

// 表单编码的正文参数优先，查询参数只补充正文中没有的名称。
func (req *Request) decodeParams() {
	ct := utils.FilterContentType(strings.TrimSpace(req.header.Get(consts.HeaderContentType)))
	if strings.EqualFold(ct, consts.MIMEPostForm) {
		req.params.appendParsed(req.Body())
	}
	if req.query == "" {
		return
	}

	var fromBody map[string]struct{}
	if req.params.Len() > 0 {
		fromBody = make(map[string]struct{}, req.params.Len())
		req.params.VisitAll(func(k, _ []byte) {
			fromBody[string(k)] = struct{}{}
		})
	}
	var q Args
	q.ParseBytes(bytesconv.S2b(req.query))
	q.VisitAll(func(k, v []byte) {
		if _, ok := fromBody[string(k)]; !ok {
			req.params.Add(string(k), string(v))
		}
	})
}

func (req *Request) abort(err error) {
	req.status = Aborted
	req.err = errs.New(err, errs.ErrorTypeProtocol, req.consumed)
	req.removeSpool()
}

func (req *Request) removeSpool() {
	if req.spool == nil {
		return
	}
	name := req.spool.Name()
	_ = req.spool.Close()
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		hlog.SystemLogger().Warnf("删除多部分暂存文件失败：文件=%s 错误=%v", name, err)
	}
	req.spool = nil
}

// Cleanup 删除暂存文件及上传文件并归还正文缓冲。
//
// 由所属连接在请求结束后调用，之后 Body 与 UploadedFile 均失效。
func (req *Request) Cleanup() {
	req.removeSpool()
	for name, f := range req.files {
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			hlog.SystemLogger().Warnf("删除上传文件失败：文件=%s 错误=%v", f.Path, err)
		}
		delete(req.files, name)
	}
	if req.body != nil {
		bodyPool.Put(req.body)
		req.body = nil
	}
}

// Status 返回当前解析状态。
func (req *Request) Status() ParseStatus { return req.status }

// Done 报告解析是否已完成或中止。
func (req *Request) Done() bool {
	return req.status == Complete || req.status == Aborted
}

// Err 返回中止的原因，未中止时为 nil。
//
// 非空时为 ErrorTypeProtocol 类型的 *errors.Error，Meta 为中止时已消费的字节数。
func (req *Request) Err() error { return req.err }

// Created 返回请求的创建时间。
func (req *Request) Created() time.Time { return req.created }

// Consumed 返回计入请求大小限制的已读字节数。
func (req *Request) Consumed() int { return req.consumed }

// Expected 返回声明的正文长度。
func (req *Request) Expected() int { return req.expected }

func (req *Request) Method() string  { return req.method }
func (req *Request) URI() string     { return req.uri }
func (req *Request) Path() string    { return req.path }
func (req *Request) Query() string   { return req.query }
func (req *Request) Version() string { return req.version }

// Header 返回请求标头，处理器不应修改。
func (req *Request) Header() *Header { return &req.header }

// Param 返回指定名称的第一个参数值。
func (req *Request) Param(name string) string {
	return string(req.params.Peek(name))
}

// ParamValues 返回指定名称的全部参数值。
func (req *Request) ParamValues(name string) []string {
	return req.params.PeekAll(name)
}

// Params 返回解码后的全部参数，包括多部分表单中的普通字段。
func (req *Request) Params() *Args { return &req.params }

// Cookie 返回指定名称的 cookie 值。
func (req *Request) Cookie(name string) string { return req.cookies[name] }

// Cookies 返回全部 cookie 的副本。
func (req *Request) Cookies() map[string]string {
	m := make(map[string]string, len(req.cookies))
	for k, v := range req.cookies {
		m[k] = v
	}
	return m
}

// Body 返回非多部分请求的正文。
func (req *Request) Body() []byte {
	if req.body == nil {
		return nil
	}
	return req.body.B
}

// UploadedFile 返回指定字段名的上传文件，不存在返回 nil。
func (req *Request) UploadedFile(name string) *UploadedFile { return req.files[name] }

// UploadedFiles 返回全部上传文件，键为字段名。
func (req *Request) UploadedFiles() map[string]*UploadedFile { return req.files }

// ConnectionClose 报告客户端是否要求处理完本请求后关闭连接。
func (req *Request) ConnectionClose() bool {
	return strings.EqualFold(strings.TrimSpace(req.header.Get(consts.HeaderConnection)), consts.ValueClose)
}

// AcceptsGzip 报告客户端是否接受 gzip 编码的响应。
func (req *Request) AcceptsGzip() bool {
	return strings.Contains(req.header.Get(consts.HeaderAcceptEncoding), consts.ValueGzip)
}
