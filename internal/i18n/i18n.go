// 包 i18n：界面文案表（蒙古语/日语）与语言偏好持久化
package i18n

import (
	"context"
	"errors"
	"slices"

	"tripmark/internal/slot"
)

// LangKey：语言偏好所在槽位键
const LangKey = "tm_lang"

const Default = "mn"

var ErrUnknownLang = errors.New("i18n: unknown language")

// Languages：支持的语言标签，顺序即前端语言选择器顺序
var Languages = []string{"mn", "ja"}

var tables = map[string]map[string]string{
	"mn": {
		"title":             "🗺️ Миний Аялах Газрууд",
		"searchPlaceholder": "Газрын нэр хайх (ж.н. Тэрэлж)",
		"searchBtn":         "Хайх",
		"historyTitle":      "🔁 Хайсан газрууд:",
		"formName":          "Газрын нэр",
		"formComment":       "Тайлбар эсвэл сэтгэгдэл бичнэ үү",
		"saveBtn":           "Хадгалах",
		"notFound":          "Газрыг олсонгүй.",
		"searchError":       "Хайлт хийхэд алдаа гарлаа.",
		"pickHint":          "Газрын нэрээ оруулаад, газрын зураг дээр байршлаа сонгоно уу.",
		"storageFull":       "Санах ой дүүрсэн тул зураггүйгээр хадгална уу эсвэл зарим газраа устгана уу.",
		"saveError":         "Хадгалах явцад алдаа гарлаа.",
		"submitDiscarded":   "Маягт хаагдсан тул хадгалсангүй. Дахин оролдоно уу.",
		"deleteError":       "Устгах явцад алдаа гарлаа.",
		"imageError":        "Зургийг уншиж чадсангүй.",
	},
	"ja": {
		"title":             "🗺️ 旅行スポットメモ",
		"searchPlaceholder": "場所名で検索（例：テレルジ / 上野公園）",
		"searchBtn":         "検索",
		"historyTitle":      "🔁 検索履歴：",
		"formName":          "場所名",
		"formComment":       "メモ・コメントを入力",
		"saveBtn":           "保存",
		"notFound":          "場所が見つかりませんでした。",
		"searchError":       "検索中にエラーが発生しました。",
		"pickHint":          "場所名を入力して地図上で位置を選んでください。",
		"storageFull":       "ストレージが一杯です。画像なしで保存するか、いくつか削除してください。",
		"saveError":         "保存時にエラーが発生しました。",
		"submitDiscarded":   "フォームが閉じられたため保存しませんでした。もう一度お試しください。",
		"deleteError":       "削除中にエラーが発生しました。",
		"imageError":        "画像を読み込めませんでした。",
	},
}

// Supported：是否为已知语言标签
func Supported(lang string) bool { return slices.Contains(Languages, lang) }

// T：按语言取文案；缺失时依次回退到默认语言、键名本身
func T(lang, key string) string {
	if s, ok := tables[lang][key]; ok {
		return s
	}
	if s, ok := tables[Default][key]; ok {
		return s
	}
	return key
}

// Labels：某语言下的完整文案（已合并默认语言回退），供前端一次性应用
func Labels(lang string) map[string]string {
	out := make(map[string]string, len(tables[Default]))
	for k := range tables[Default] {
		out[k] = T(lang, k)
	}
	return out
}

// Prefs：语言偏好读写
type Prefs struct {
	slot slot.Slot
}

func NewPrefs(s slot.Slot) *Prefs { return &Prefs{slot: s} }

// Get：读取失败或存的是未知标签时返回默认语言
func (p *Prefs) Get(ctx context.Context) string {
	b, err := p.slot.Get(ctx, LangKey)
	if err != nil || !Supported(string(b)) {
		return Default
	}
	return string(b)
}

func (p *Prefs) Set(ctx context.Context, lang string) error {
	if !Supported(lang) {
		return ErrUnknownLang
	}
	return p.slot.Set(ctx, LangKey, []byte(lang))
}
