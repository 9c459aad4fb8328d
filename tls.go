package walter

import (
	"context"
	"fmt"

	"github.com/quickspot/go-walter/internal/constants"
)

// TLS profile configuration and credential provisioning. Profiles are
// configured once and referenced by id from the HTTP, MQTT and CoAP
// operations.

// TLSConfigProfile configures a TLS security profile, including optional
// client authentication material, the validation level and the TLS version.
// Certificate and key arguments are NVRAM slot indices; pass a negative
// index to leave a slot unused.
func (m *Modem) TLSConfigProfile(ctx context.Context, profileID int, version TLSVersion, validation TLSValidation, caCertificateID, clientCertificateID, clientPrivateKeyID int, rsp *Rsp) bool {
	if profileID <= 0 || profileID > constants.MaxTLSProfiles {
		if rsp != nil {
			rsp.Result = ResultNoSuchProfile
		}
		return false
	}

	atCmd := fmt.Sprintf(`AT+SQNSPCFG=%d,%d,"",%d`, profileID, version, validation)

	atCmd += ","
	if caCertificateID >= 0 {
		atCmd += fmt.Sprintf("%d", caCertificateID)
	}
	atCmd += ","
	if clientCertificateID >= 0 {
		atCmd += fmt.Sprintf("%d", clientCertificateID)
	}
	atCmd += ","
	if clientPrivateKeyID >= 0 {
		atCmd += fmt.Sprintf("%d", clientPrivateKeyID)
	}
	atCmd += `,"","",0`

	return m.RunCmd(ctx, rsp, atCmd, "OK")
}

// tlsUploadKey stores a certificate or private key in the modem's NVRAM
// using the prompt-based data upload.
func (m *Modem) tlsUploadKey(ctx context.Context, isPrivateKey bool, slot int, key []byte, rsp *Rsp) bool {
	keyType := "certificate"
	if isPrivateKey {
		keyType = "privatekey"
	}
	return m.RunCmdWithData(ctx, rsp,
		fmt.Sprintf("AT+SQNSNVW=%s,%d,%d", modemString(keyType), slot, len(key)),
		key, "OK")
}

// TLSProvisionKeys stores the client certificate, private key and CA
// certificate in the modem's NVRAM. The slot numbers match the ones the
// stock Walter firmware examples expect: certificate in 5, key in 0, CA in
// 6. Nil slices are skipped.
func (m *Modem) TLSProvisionKeys(ctx context.Context, clientCertificate, clientPrivateKey, caCertificate []byte, rsp *Rsp) bool {
	if clientCertificate != nil {
		if !m.tlsUploadKey(ctx, false, 5, clientCertificate, rsp) {
			if m.logger != nil {
				m.logger.Printf("failed to upload client certificate")
			}
			return false
		}
	}
	if clientPrivateKey != nil {
		if !m.tlsUploadKey(ctx, true, 0, clientPrivateKey, rsp) {
			if m.logger != nil {
				m.logger.Printf("failed to upload private key")
			}
			return false
		}
	}
	if caCertificate != nil {
		if !m.tlsUploadKey(ctx, false, 6, caCertificate, rsp) {
			if m.logger != nil {
				m.logger.Printf("failed to upload CA certificate")
			}
			return false
		}
	}
	return true
}
