package network

import (
	"bytes"
	"crypto/x509"
	"errors"
	"time"
)

// TLSVerifyError 表示对端证书的一种校验错误。
type TLSVerifyError uint8

// 对端证书校验错误，名称与配置项 "Ignore<名称>" 一一对应。
// 其中部分错误 Go 的证书校验不会产生，仅为兼容配置而保留。
const (
	TLSUnspecifiedError TLSVerifyError = iota
	TLSUnableToGetIssuerCertificate
	TLSUnableToDecryptCertificateSignature
	TLSUnableToDecodeIssuerPublicKey
	TLSCertificateSignatureFailed
	TLSCertificateNotYetValid
	TLSCertificateExpired
	TLSInvalidNotBeforeField
	TLSInvalidNotAfterField
	TLSSelfSignedCertificate
	TLSSelfSignedCertificateInChain
	TLSUnableToGetLocalIssuerCertificate
	TLSUnableToVerifyFirstCertificate
	TLSCertificateRevoked
	TLSInvalidCaCertificate
	TLSPathLengthExceeded
	TLSInvalidPurpose
	TLSCertificateUntrusted
	TLSCertificateRejected
	TLSSubjectIssuerMismatch
	TLSAuthorityIssuerSerialNumberMismatch
	TLSNoPeerCertificate
	TLSHostNameMismatch
	TLSNoSslSupport
	TLSCertificateBlacklisted
	numTLSVerifyErrors
)

var tlsVerifyErrorNames = [numTLSVerifyErrors]string{
	"UnspecifiedError",
	"UnableToGetIssuerCertificate",
	"UnableToDecryptCertificateSignature",
	"UnableToDecodeIssuerPublicKey",
	"CertificateSignatureFailed",
	"CertificateNotYetValid",
	"CertificateExpired",
	"InvalidNotBeforeField",
	"InvalidNotAfterField",
	"SelfSignedCertificate",
	"SelfSignedCertificateInChain",
	"UnableToGetLocalIssuerCertificate",
	"UnableToVerifyFirstCertificate",
	"CertificateRevoked",
	"InvalidCaCertificate",
	"PathLengthExceeded",
	"InvalidPurpose",
	"CertificateUntrusted",
	"CertificateRejected",
	"SubjectIssuerMismatch",
	"AuthorityIssuerSerialNumberMismatch",
	"NoPeerCertificate",
	"HostNameMismatch",
	"NoSslSupport",
	"CertificateBlacklisted",
}

func (e TLSVerifyError) String() string {
	if e < numTLSVerifyErrors {
		return tlsVerifyErrorNames[e]
	}
	return "UnknownError"
}

// ParseTLSVerifyError 按名称查找校验错误，名称可带 "Ignore" 前缀。
func ParseTLSVerifyError(name string) (TLSVerifyError, bool) {
	if len(name) > len("Ignore") && name[:len("Ignore")] == "Ignore" {
		name = name[len("Ignore"):]
	}
	for i, n := range tlsVerifyErrorNames {
		if n == name {
			return TLSVerifyError(i), true
		}
	}
	return 0, false
}

// TLSErrorSet 是校验错误的集合。
type TLSErrorSet uint32

// With 返回加入 e 后的集合。
func (s TLSErrorSet) With(e TLSVerifyError) TLSErrorSet {
	return s | 1<<e
}

// Has 报告集合是否包含 e。
func (s TLSErrorSet) Has(e TLSVerifyError) bool {
	return s&(1<<e) != 0
}

// TLSPolicy 决定哪些对端证书校验错误不影响 Verified。
type TLSPolicy struct {
	IgnoreAll bool
	Ignore    TLSErrorSet
}

// Ignores 报告错误 e 是否被忽略。
func (p TLSPolicy) Ignores(e TLSVerifyError) bool {
	return p.IgnoreAll || p.Ignore.Has(e)
}

// Evaluate 校验对端证书链并按策略给出结果。
//
// 遇到被忽略的错误时，去掉该条件后重新校验，直到通过或出现未被忽略的错误，
// 因此 Errors 依次记录沿途发现的全部错误。无法去掉的条件会终止校验，
// 此时仅在 IgnoreAll 下视为通过。
//
// 校验失败从不导致断开连接，是否信任由应用层通过 Verified 决定。
func (p TLSPolicy) Evaluate(chain []*x509.Certificate, roots *x509.CertPool, now time.Time) *TLSState {
	st := &TLSState{Verified: true}
	if len(chain) == 0 {
		st.Errors = []TLSVerifyError{TLSNoPeerCertificate}
		st.Verified = p.Ignores(TLSNoPeerCertificate)
		return st
	}
	st.PeerCertificate = chain[0]

	intermediates := x509.NewCertPool()
	for _, c := range chain[1:] {
		intermediates.AddCert(c)
	}
	opts := x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		CurrentTime:   now,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}

	r := relaxer{now: now}
	for n := 2*len(chain) + int(numTLSVerifyErrors); n > 0; n-- {
		_, err := chain[0].Verify(opts)
		if err == nil {
			return st
		}
		e := ClassifyVerifyError(err, chain, opts.CurrentTime)
		st.Errors = append(st.Errors, e)
		if !p.Ignores(e) {
			st.Verified = false
			return st
		}
		if !r.relax(e, err, chain, &opts) {
			break
		}
	}
	st.Verified = p.IgnoreAll
	return st
}

// relaxer 逐个去掉被忽略的校验条件。
type relaxer struct {
	now    time.Time
	lo, hi time.Time // 已放宽证书有效期的交集
	roots  TLSErrorSet
}

// 去掉错误 e 对应的校验条件，无法去掉时返回 false。
func (r *relaxer) relax(e TLSVerifyError, err error, chain []*x509.Certificate, opts *x509.VerifyOptions) bool {
	switch e {
	case TLSCertificateExpired, TLSCertificateNotYetValid:
		var invalid x509.CertificateInvalidError
		if !errors.As(err, &invalid) || invalid.Cert == nil {
			return false
		}
		c := invalid.Cert
		if r.lo.IsZero() || c.NotBefore.After(r.lo) {
			r.lo = c.NotBefore
		}
		if r.hi.IsZero() || c.NotAfter.Before(r.hi) {
			r.hi = c.NotAfter
		}
		if r.lo.After(r.hi) {
			return false
		}
		t := r.now
		if t.Before(r.lo) {
			t = r.lo
		} else if t.After(r.hi) {
			t = r.hi
		}
		if t.Equal(opts.CurrentTime) {
			return false
		}
		opts.CurrentTime = t
		return true
	case TLSSelfSignedCertificate:
		return r.trust(e, chain[0], opts)
	case TLSSelfSignedCertificateInChain:
		for _, c := range chain[1:] {
			if isSelfSigned(c) {
				return r.trust(e, c, opts)
			}
		}
	case TLSUnableToGetIssuerCertificate, TLSUnableToGetLocalIssuerCertificate:
		return r.trust(e, chain[len(chain)-1], opts)
	}
	return false
}

// 将 c 作为根证书再试一次，同类错误只放宽一次。
func (r *relaxer) trust(e TLSVerifyError, c *x509.Certificate, opts *x509.VerifyOptions) bool {
	if r.roots.Has(e) {
		return false
	}
	r.roots = r.roots.With(e)
	opts.Roots = withRoot(opts.Roots, c)
	return true
}

// 返回加入 c 后的根证书池副本，roots 为空时以系统根证书为底。
func withRoot(roots *x509.CertPool, c *x509.Certificate) *x509.CertPool {
	var pool *x509.CertPool
	if roots != nil {
		pool = roots.Clone()
	} else if sys, err := x509.SystemCertPool(); err == nil {
		pool = sys
	} else {
		pool = x509.NewCertPool()
	}
	pool.AddCert(c)
	return pool
}

// ClassifyVerifyError 将 x509 校验错误映射为 TLSVerifyError。
func ClassifyVerifyError(err error, chain []*x509.Certificate, now time.Time) TLSVerifyError {
	var invalid x509.CertificateInvalidError
	if errors.As(err, &invalid) {
		switch invalid.Reason {
		case x509.Expired:
			if invalid.Cert != nil && now.Before(invalid.Cert.NotBefore) {
				return TLSCertificateNotYetValid
			}
			return TLSCertificateExpired
		case x509.NotAuthorizedToSign, x509.CANotAuthorizedForThisName, x509.CANotAuthorizedForExtKeyUsage:
			return TLSInvalidCaCertificate
		case x509.TooManyIntermediates:
			return TLSPathLengthExceeded
		case x509.IncompatibleUsage:
			return TLSInvalidPurpose
		case x509.NameMismatch:
			return TLSSubjectIssuerMismatch
		case x509.NameConstraintsWithoutSANs, x509.UnconstrainedName:
			return TLSCertificateRejected
		}
		return TLSUnspecifiedError
	}

	var unknown x509.UnknownAuthorityError
	if errors.As(err, &unknown) {
		if isSelfSigned(chain[0]) {
			return TLSSelfSignedCertificate
		}
		for _, c := range chain[1:] {
			if isSelfSigned(c) {
				return TLSSelfSignedCertificateInChain
			}
		}
		if len(chain) == 1 {
			return TLSUnableToGetLocalIssuerCertificate
		}
		return TLSUnableToGetIssuerCertificate
	}

	var hostname x509.HostnameError
	if errors.As(err, &hostname) {
		return TLSHostNameMismatch
	}

	var insecure x509.InsecureAlgorithmError
	if errors.As(err, &insecure) || errors.Is(err, x509.ErrUnsupportedAlgorithm) {
		return TLSCertificateSignatureFailed
	}

	return TLSUnspecifiedError
}

func isSelfSigned(c *x509.Certificate) bool {
	if !bytes.Equal(c.RawIssuer, c.RawSubject) {
		return false
	}
	return c.CheckSignature(c.SignatureAlgorithm, c.RawTBSCertificate, c.Signature) == nil
}
