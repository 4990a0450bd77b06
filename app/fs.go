package app

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/favbox/breeze/common/hlog"
	"github.com/favbox/breeze/common/mimetype"
	"github.com/favbox/breeze/common/utils"
	"github.com/favbox/breeze/internal/bytesconv"
	"github.com/favbox/breeze/internal/nocopy"
	"github.com/favbox/breeze/protocol"
	"github.com/favbox/breeze/protocol/consts"
)

const (
	defaultIndexName = "index.html"
	defaultMaxAge    = time.Hour
)

// FS 是静态文件服务配置项。 不支持拷贝。
type FS struct {
	noCopy nocopy.NoCopy

	// 静态文件服务的根目录，默认为当前工作目录。
	Root string

	// 访问目录时打开的索引文件名称，默认 "index.html"。
	IndexName string

	// 客户端缓存时长，写入 Cache-Control 与 Expires，默认 1 小时。
	MaxAge time.Duration

	// 按后缀查找内容类型的注册表，默认使用内置类型。
	MIME *mimetype.Registry

	// 文件内容在内存中的缓存时长。
	//
	// 默认为 0，即每次请求都读取文件。
	CacheDuration time.Duration

	once sync.Once
	h    *fsHandler
}

// NewRequestHandler 返回当前 FS 的请求处理器。
//
// 不要从单个 FS 实例创建多个请求处理器 - 只需复用一个请求处理器即可。
func (fs *FS) NewRequestHandler() HandlerFunc {
	fs.once.Do(fs.initRequestHandler)
	return fs.h.handleRequest
}

func (fs *FS) initRequestHandler() {
	root := fs.Root

	// 若根目录为空，则提供当前工作目录的文件服务
	if len(root) == 0 {
		root = "."
	}

	// 删除根路径的尾随斜线
	for len(root) > 1 && root[len(root)-1] == '/' {
		root = root[:len(root)-1]
	}

	indexName := fs.IndexName
	if indexName == "" {
		indexName = defaultIndexName
	}
	maxAge := fs.MaxAge
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}
	mime := fs.MIME
	if mime == nil {
		mime = mimetype.NewRegistry(nil)
	}

	fs.h = &fsHandler{
		root:          root,
		indexName:     indexName,
		maxAge:        maxAge,
		mime:          mime,
		cacheDuration: fs.CacheDuration,
		cache:         make(map[string]*fsFile),
		now:           time.Now,
	}
}

type fsHandler struct {
	root          string
	indexName     string
	maxAge        time.Duration
	mime          *mimetype.Registry
	cacheDuration time.Duration

	cacheLock sync.Mutex
	cache     map[string]*fsFile

	now func() time.Time
}

// 缓存的文件内容。
type fsFile struct {
	content []byte
	modTime time.Time
	t       time.Time
}

func (h *fsHandler) handleRequest(req *protocol.Request, resp *protocol.Response) {
	path := req.Path()
	if hasDotDotSegment(path) {
		Error(resp, consts.StatusForbidden, "403 Forbidden")
		return
	}
	path = utils.CleanPath(path)

	filePath := filepath.Join(h.root, filepath.FromSlash(path))
	if info, err := os.Stat(filePath); err == nil && info.IsDir() {
		filePath = filepath.Join(filePath, h.indexName)
	}

	content, err := h.readFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			Error(resp, consts.StatusNotFound, "404 Not found")
			return
		}
		hlog.SystemLogger().Debugf("无法读取静态文件：路径=%s 错误=%v", filePath, err)
		Error(resp, consts.StatusForbidden, "403 Forbidden")
		return
	}

	if ct, ok := h.mime.ByPath(filePath); ok {
		resp.SetContentType(ct)
	}
	setCacheHeaders(resp, h.maxAge, h.now())
	tag := etag(content)
	resp.SetHeader(consts.HeaderETag, tag)
	if req.Header().Get(consts.HeaderIfNoneMatch) == tag {
		resp.SetStatusCode(consts.StatusNotModified)
		resp.Flush()
		return
	}
	_, _ = resp.Write(content)
	resp.Flush()
}

// 强校验器，取内容的 xxhash。
func etag(content []byte) string {
	return `"` + strconv.FormatUint(xxhash.Sum64(content), 16) + `"`
}

func (h *fsHandler) readFile(filePath string) ([]byte, error) {
	if h.cacheDuration <= 0 {
		return os.ReadFile(filePath)
	}

	now := h.now()
	h.cacheLock.Lock()
	ff := h.cache[filePath]
	h.cacheLock.Unlock()
	if ff != nil && now.Sub(ff.t) < h.cacheDuration {
		return ff.content, nil
	}

	info, err := os.Stat(filePath)
	if err != nil {
		h.evict(filePath)
		return nil, err
	}
	if ff != nil && info.ModTime().Equal(ff.modTime) {
		h.cacheLock.Lock()
		ff.t = now
		h.cacheLock.Unlock()
		return ff.content, nil
	}
	content, err := os.ReadFile(filePath)
	if err != nil {
		h.evict(filePath)
		return nil, err
	}
	h.cacheLock.Lock()
	h.cache[filePath] = &fsFile{content: content, modTime: info.ModTime(), t: now}
	h.cacheLock.Unlock()
	return content, nil
}

func (h *fsHandler) evict(filePath string) {
	h.cacheLock.Lock()
	delete(h.cache, filePath)
	h.cacheLock.Unlock()
}

// 请求路径中的任何 ".." 段都可能跳出根目录。
func hasDotDotSegment(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

func setCacheHeaders(resp *protocol.Response, maxAge time.Duration, now time.Time) {
	secs := int(maxAge / time.Second)
	resp.SetHeader(consts.HeaderCacheControl, "Public,max-age="+strconv.Itoa(secs))
	resp.SetHeader(consts.HeaderExpires, string(bytesconv.AppendHTTPDate(nil, now.Add(maxAge))))
}

// ServeFile 将单个文件作为响应发送，内容类型按后缀从 mime 中查找，mime 可以为空。
func ServeFile(resp *protocol.Response, filePath string, mime *mimetype.Registry) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			Error(resp, consts.StatusNotFound, "404 Not found")
		} else {
			Error(resp, consts.StatusForbidden, "403 Forbidden")
		}
		return
	}
	if mime == nil {
		mime = mimetype.NewRegistry(nil)
	}
	if ct, ok := mime.ByPath(filePath); ok {
		resp.SetContentType(ct)
	}
	_, _ = resp.Write(content)
	resp.Flush()
}
