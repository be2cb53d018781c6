package collector

import (
	"sort"

	"github.com/ysmood/gson"

	"github.com/yacobolo/tokensmith/internal/tokens"
)

// handleAttr marks every extracted element so a handle can find it again
const handleAttr = "data-tokensmith-id"

// maxBroadCandidates bounds broad capture on very large pages
const maxBroadCandidates = 1500

// extractScript walks the DOM and reports candidate elements with their
// computed styles. Curated mode keeps landmarks, controls, headings and
// text blocks; broad mode reports every rendered element.
const extractScript = `(props, broad, limit, attr) => {
	const curated = "h1,h2,h3,h4,h5,h6,p,a,button,input,select,textarea,label,li,nav,header,footer,main,section,article,aside,[role=button],[role=link],[role=navigation],[role=tab],[role=switch],[class*=card],[class*=chip],[class*=badge],[class*=tag]";
	const nodes = broad ? document.querySelectorAll("body *") : document.querySelectorAll(curated);

	const pathOf = (el) => {
		if (el.id) return "#" + CSS.escape(el.id);
		const parts = [];
		for (let n = el; n && n.nodeType === 1 && n !== document.documentElement; n = n.parentElement) {
			let part = n.tagName.toLowerCase();
			if (n.id) { parts.unshift("#" + CSS.escape(n.id) + " > " + part); break; }
			const sibs = n.parentElement ? Array.from(n.parentElement.children).filter(s => s.tagName === n.tagName) : [];
			if (sibs.length > 1) part += ":nth-of-type(" + (sibs.indexOf(n) + 1) + ")";
			parts.unshift(part);
		}
		return parts.join(" > ");
	};

	const out = [];
	for (const el of nodes) {
		if (out.length >= limit) break;
		const cs = getComputedStyle(el);
		const r = el.getBoundingClientRect();
		const styles = {};
		for (const p of props) styles[p] = cs.getPropertyValue(p);
		const id = String(out.length + 1);
		el.setAttribute(attr, id);
		out.push({
			handle: id,
			selector: pathOf(el),
			tag: el.tagName.toLowerCase(),
			role: el.getAttribute("role") || "",
			aria: el.getAttribute("aria-label") || "",
			text: (el.innerText || el.value || "").slice(0, 200),
			href: el.getAttribute("href") || "",
			inAnchor: !!(el.parentElement && el.parentElement.closest("a")),
			classes: Array.from(el.classList),
			bbox: { x: r.x + window.scrollX, y: r.y + window.scrollY, w: r.width, h: r.height },
			visible: cs.display !== "none" && cs.visibility !== "hidden" && parseFloat(cs.opacity) > 0 && r.width > 0 && r.height > 0,
			styles: styles,
		});
	}
	return out;
}`

// sheetScript lists stylesheets in document order. Sheets whose rules are
// not readable from the page come back with text null.
const sheetScript = `() => Array.from(document.styleSheets).map(s => {
	let text = null;
	try { text = Array.from(s.cssRules).map(r => r.cssText).join("\n"); } catch (e) {}
	return { href: s.href || "", text: text };
})`

// extracted is one decoded candidate plus the id stamped on its element
type extracted struct {
	handle    string
	candidate tokens.Candidate
}

type rawSheet struct {
	href    string
	text    string
	hasText bool
}

func decodeCandidates(v gson.JSON) []extracted {
	var out []extracted
	for _, item := range v.Arr() {
		m := item.Map()
		c := tokens.Candidate{
			SelectorPath: str(m, "selector"),
			Tag:          str(m, "tag"),
			Role:         str(m, "role"),
			AriaLabel:    str(m, "aria"),
			Text:         str(m, "text"),
			Href:         str(m, "href"),
			InAnchor:     boolean(m, "inAnchor"),
			Visible:      boolean(m, "visible"),
			Styles:       map[string]string{},
		}
		if cls, ok := m["classes"]; ok {
			for _, x := range cls.Arr() {
				c.Classes = append(c.Classes, x.Str())
			}
		}
		if bb, ok := m["bbox"]; ok {
			b := bb.Map()
			c.BBox = tokens.BBox{X: num(b, "x"), Y: num(b, "y"), W: num(b, "w"), H: num(b, "h")}
		}
		if st, ok := m["styles"]; ok {
			for k, val := range st.Map() {
				c.Styles[k] = val.Str()
			}
		}
		out = append(out, extracted{handle: str(m, "handle"), candidate: c})
	}
	return out
}

func decodeSheets(v gson.JSON) []rawSheet {
	var out []rawSheet
	for _, item := range v.Arr() {
		m := item.Map()
		s := rawSheet{href: str(m, "href")}
		if t, ok := m["text"]; ok && !t.Nil() {
			s.text, s.hasText = t.Str(), true
		}
		out = append(out, s)
	}
	return out
}

func decodeStyles(v gson.JSON) map[string]string {
	out := map[string]string{}
	for k, val := range v.Map() {
		out[k] = val.Str()
	}
	return out
}

func decodeStates(v gson.JSON) []tokens.StateName {
	var out []tokens.StateName
	for _, x := range v.Arr() {
		if s := tokens.StateName(x.Str()); s.IsExtra() {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func str(m map[string]gson.JSON, key string) string {
	v, ok := m[key]
	if !ok || v.Nil() {
		return ""
	}
	return v.Str()
}

func num(m map[string]gson.JSON, key string) float64 {
	v, ok := m[key]
	if !ok || v.Nil() {
		return 0
	}
	return v.Num()
}

func boolean(m map[string]gson.JSON, key string) bool {
	v, ok := m[key]
	if !ok || v.Nil() {
		return false
	}
	return v.Bool()
}
