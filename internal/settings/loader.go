package settings

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the policy YAML file. A missing file is not an error;
// defaults apply so a fresh checkout works without any policy file.
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	var s Settings
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode settings file: %w", err)
	}

	if err := Validate(&s); err != nil {
		return nil, err
	}

	return &s, nil
}

// Hash generates a SHA256 hash of the settings (canonical JSON).
// 캐시 키와 리포트 재현성 태깅에 사용
func Hash(s *Settings) (string, error) {
	jsonBytes, err := json.Marshal(s)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
