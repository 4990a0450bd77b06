package protocol

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/textproto"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/favbox/breeze/common/errors"
)

func buildMultipart(t *testing.T) (string, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "Hello breeze"))

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="upload"; filename="a.txt"`)
	h.Set("Content-Type", "text/plain")
	h.Set("X-Unknown-Part-Header", "ignored")
	w, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = w.Write([]byte("file content\r\nsecond line"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return mw.FormDataContentType(), buf.Bytes()
}

func multipartRequest(contentType string, body []byte) []byte {
	head := "POST /upload HTTP/1.1\r\n" +
		"Content-Type: " + contentType + "\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n"
	return append([]byte(head), body...)
}

func TestRequestMultipart(t *testing.T) {
	t.Parallel()
	ct, body := buildMultipart(t)
	limits := DefaultLimits()
	limits.TempDir = t.TempDir()

	req := NewRequest(limits)
	raw := multipartRequest(ct, body)
	// 分两次投递，覆盖跨读取的暂存
	half := len(raw) - len(body)/2
	req.Feed(raw[:half])
	assert.Equal(t, WaitForBody, req.Status())
	req.Feed(raw[half:])
	require.Equal(t, Complete, req.Status())

	assert.Equal(t, "Hello breeze", req.Param("title"))
	f := req.UploadedFile("upload")
	require.NotNil(t, f)
	assert.Equal(t, "a.txt", f.FileName)
	assert.Equal(t, "text/plain", f.ContentType)
	assert.Equal(t, int64(len("file content\r\nsecond line")), f.Size)
	content, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	assert.Equal(t, "file content\r\nsecond line", string(content))

	// 暂存文件在解析后删除，只剩上传文件
	entries, err := os.ReadDir(limits.TempDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	req.Cleanup()
	_, err = os.Stat(f.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestRequestMultipartQuotedBoundary(t *testing.T) {
	t.Parallel()
	_, body := buildMultipart(t)
	boundary := body[2:bytes.IndexByte(body, '\r')]
	limits := DefaultLimits()
	limits.TempDir = t.TempDir()

	req := NewRequest(limits)
	req.Feed(multipartRequest(`multipart/form-data; boundary="`+string(boundary)+`"; charset=utf-8`, body))
	require.Equal(t, Complete, req.Status())
	assert.Equal(t, "Hello breeze", req.Param("title"))
	req.Cleanup()
}

func TestRequestMultipartTooLarge(t *testing.T) {
	t.Parallel()
	ct, body := buildMultipart(t)
	limits := DefaultLimits()
	limits.TempDir = t.TempDir()
	limits.MaxMultipartSize = len(body) - 1
	// 多部分正文不受普通请求上限约束
	limits.MaxRequestSize = 256

	req := NewRequest(limits)
	req.Feed(multipartRequest(ct, body))
	assert.Equal(t, Aborted, req.Status())
	assert.True(t, errors.Is(req.Err(), errs.ErrBodyTooLarge))

	limits.MaxMultipartSize = len(body)
	req = NewRequest(limits)
	req.Feed(multipartRequest(ct, body))
	assert.Equal(t, Complete, req.Status())
	req.Cleanup()
}

func TestRequestMultipartSpoolFailure(t *testing.T) {
	t.Parallel()
	ct, body := buildMultipart(t)
	limits := DefaultLimits()
	limits.TempDir = t.TempDir() + "/missing"

	req := NewRequest(limits)
	req.Feed(multipartRequest(ct, body))
	assert.Equal(t, Aborted, req.Status())
	assert.True(t, errors.Is(req.Err(), errs.ErrSpoolFailed))
}

func TestRequestMultipartTruncated(t *testing.T) {
	t.Parallel()
	ct, body := buildMultipart(t)
	// 去掉结束边界，已解析的字段保留
	cut := bytes.LastIndex(body, []byte("\r\n--"))
	body = body[:cut]
	limits := DefaultLimits()
	limits.TempDir = t.TempDir()

	req := NewRequest(limits)
	req.Feed(multipartRequest(ct, body))
	require.Equal(t, Complete, req.Status())
	assert.Equal(t, "Hello breeze", req.Param("title"))
	req.Cleanup()
}
