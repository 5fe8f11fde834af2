package item

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Catalog 是导入文件的结构
//
//	items:
//	  - name: 条目名称
//	    mediaUrl: https://example.com/a.png
//	    id: 可选的UUID
type Catalog struct {
	Items []NewItem `yaml:"items" validate:"required,min=1,dive"`
}

// ParseCatalog 解析并校验YAML格式的目录，未知字段会被拒绝
func ParseCatalog(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cat Catalog
	if err := dec.Decode(&cat); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("目录文件为空")
		}
		return nil, fmt.Errorf("无法解析目录文件: %w", err)
	}
	if err := validator.New().Struct(&cat); err != nil {
		return nil, fmt.Errorf("目录文件校验失败: %w", err)
	}
	return &cat, nil
}

// LoadCatalogFile 从文件读取目录
func LoadCatalogFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取目录文件 %s: %w", path, err)
	}
	return ParseCatalog(bytes.NewReader(raw))
}
