package scheduler

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
)

var collateArgs = func() pinyin.Args {
	args := pinyin.NewArgs()
	// 非汉字原样保留（转小写），这样中英文姓名可以放在一起排序
	args.Fallback = func(r rune, a pinyin.Args) []string {
		if unicode.IsSpace(r) {
			return nil
		}
		return []string{string(unicode.ToLower(r))}
	}
	return args
}()

// nameKey 姓名的排序键：汉字按拼音，其余字符按小写
func nameKey(name string) string {
	var sb strings.Builder
	for _, py := range pinyin.Pinyin(name, collateArgs) {
		if len(py) > 0 {
			sb.WriteString(py[0])
		}
	}
	return sb.String()
}
