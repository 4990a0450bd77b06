package protocol

import (
	"errors"
	"io"
	"mime/multipart"
	"os"

	"github.com/bytedance/gopkg/lang/mcache"
	"github.com/favbox/breeze/common/bytebufferpool"
	"github.com/favbox/breeze/common/hlog"
	"github.com/favbox/breeze/protocol/consts"
)

// 逐个解析暂存文件中的表单部分。
//
// 只有 name 的部分成为参数，同时带 filename 的部分落盘为上传文件。
// 无法识别的部分标头被忽略，解析出错时保留已解析的部分。
func (req *Request) parseMultipart() {
	if _, err := req.spool.Seek(0, io.SeekStart); err != nil {
		hlog.SystemLogger().Errorf("回读多部分暂存文件失败：文件=%s 错误=%v", req.spool.Name(), err)
		return
	}

	buf := mcache.Malloc(consts.DefaultSpoolChunkSize)
	defer mcache.Free(buf)

	mr := multipart.NewReader(req.spool, req.boundary)
	for {
		part, err := mr.NextPart()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				hlog.SystemLogger().Warnf("多部分正文解析中止：错误=%v", err)
			}
			return
		}

		name := part.FormName()
		switch {
		case name == "":
		case part.FileName() != "":
			req.saveUpload(part, name, buf)
		default:
			b := bytebufferpool.Get()
			if _, err = b.ReadFrom(part); err != nil {
				hlog.SystemLogger().Warnf("读取表单字段失败：字段=%s 错误=%v", name, err)
			} else {
				req.params.Add(name, b.String())
			}
			bytebufferpool.Put(b)
		}
		_ = part.Close()
	}
}

// 仅暴露 Write，使 io.CopyBuffer 使用给定的缓冲区。
type writerOnly struct {
	io.Writer
}

func (req *Request) saveUpload(part *multipart.Part, name string, buf []byte) {
	f, err := os.CreateTemp(req.limits.TempDir, "breeze-upload-*")
	if err != nil {
		hlog.SystemLogger().Errorf("创建上传文件失败：字段=%s 错误=%v", name, err)
		return
	}
	size, err := io.CopyBuffer(writerOnly{f}, part, buf)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		hlog.SystemLogger().Errorf("保存上传文件失败：字段=%s 错误=%v", name, err)
		_ = os.Remove(f.Name())
		return
	}

	if req.files == nil {
		req.files = make(map[string]*UploadedFile)
	}
	if old := req.files[name]; old != nil {
		_ = os.Remove(old.Path)
	}
	req.files[name] = &UploadedFile{
		Name:        name,
		FileName:    part.FileName(),
		ContentType: part.Header.Get(consts.HeaderContentType),
		Path:        f.Name(),
		Size:        size,
	}
}
