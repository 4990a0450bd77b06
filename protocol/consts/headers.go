package consts

// 常用标头名称。
const (
	HeaderAcceptEncoding   = "Accept-Encoding"
	HeaderAuthorization    = "Authorization"
	HeaderCacheControl     = "Cache-Control"
	HeaderConnection       = "Connection"
	HeaderContentEncoding  = "Content-Encoding"
	HeaderContentLength    = "Content-Length"
	HeaderContentType      = "Content-Type"
	HeaderCookie           = "Cookie"
	HeaderDate             = "Date"
	HeaderETag             = "ETag"
	HeaderExpires          = "Expires"
	HeaderHost             = "Host"
	HeaderIfNoneMatch      = "If-None-Match"
	HeaderLastModified     = "Last-Modified"
	HeaderLocation         = "Location"
	HeaderServer           = "Server"
	HeaderSetCookie        = "Set-Cookie"
	HeaderTransferEncoding = "Transfer-Encoding"
	HeaderWWWAuthenticate  = "WWW-Authenticate"
)

// 常用媒体类型。
const (
	MIMETextPlain         = "text/plain"
	MIMETextHTML          = "text/html"
	MIMETextCSS           = "text/css"
	MIMETextEventStream   = "text/event-stream"
	MIMEApplicationJSON   = "application/json"
	MIMEApplicationJS     = "application/javascript"
	MIMEApplicationXML    = "application/xml"
	MIMEOctetStream       = "application/octet-stream"
	MIMEPostForm          = "application/x-www-form-urlencoded"
	MIMEMultipartPOSTForm = "multipart/form-data"
)

// 常用标头值。
const (
	ValueClose   = "close"
	ValueChunked = "chunked"
	ValueGzip    = "gzip"
)

// GzipContentTypes 是允许压缩的响应内容类型前缀。
var GzipContentTypes = []string{
	"text/plain",
	"text/html",
	"text/css",
	"application/javascript",
}
