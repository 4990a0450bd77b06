package standard

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	errs "github.com/favbox/breeze/common/errors"
)

// LoadTLSConfig 加载私钥、证书和 CA 证书链，返回服务端 TLS 配置及用于校验对端的根证书池。
//
// 握手只请求而不强制对端证书，校验在握手完成后按 network.TLSPolicy 进行。
func LoadTLSConfig(keyFile, certFile, caFile string) (*tls.Config, *x509.CertPool, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, nil, errs.New(fmt.Errorf("加载证书失败: %w", err), errs.ErrorTypeTLS, certFile)
	}

	roots := x509.NewCertPool()
	if caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, nil, errs.New(fmt.Errorf("读取 CA 证书失败: %w", err), errs.ErrorTypeTLS, caFile)
		}
		if !roots.AppendCertsFromPEM(pem) {
			return nil, nil, errs.Newf(errs.ErrorTypeTLS, caFile, "CA 证书中没有可用的证书")
		}
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.RequestClientCert,
		ClientCAs:    roots,
		MinVersion:   tls.VersionTLS12,
	}, roots, nil
}
