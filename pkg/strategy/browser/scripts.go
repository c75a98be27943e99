package browser

// FillScript replaces the content of the receiver element (this) with the argument and
// fires the events a framework listens to. The native value setter is used so that
// controlled inputs observe the change.
const FillScript = `function (text) {
	this.focus();
	if ('value' in this) {
		const proto = Object.getPrototypeOf(this);
		const desc = Object.getOwnPropertyDescriptor(proto, 'value');
		if (desc && desc.set) {
			desc.set.call(this, '');
			desc.set.call(this, text);
		} else {
			this.value = '';
			this.value = text;
		}
	} else {
		this.textContent = text;
	}
	for (const type of ['input', 'change', 'keyup']) {
		this.dispatchEvent(new Event(type, { bubbles: true }));
	}
}`

// TagNameScript returns the lower-case tag name of the receiver element.
const TagNameScript = `function () { return this.tagName.toLowerCase(); }`

// InjectCSSScript appends a style element with the argument as content.
const InjectCSSScript = `(css) => {
	const style = document.createElement('style');
	style.setAttribute('data-tablecast', '');
	style.textContent = css;
	(document.head || document.documentElement).appendChild(style);
}`

// DismissConsentScript clicks the first visible button whose text contains one of the
// argument keywords (lower case).
const DismissConsentScript = `(keywords) => {
	for (const button of document.querySelectorAll('button')) {
		const visible = !!(button.offsetWidth || button.offsetHeight || button.getClientRects().length);
		if (!visible) continue;
		const text = (button.innerText || button.textContent || '').toLowerCase();
		if (keywords.some((k) => text.includes(k))) {
			button.click();
			return true;
		}
	}
	return false;
}`

// PressEscapeScript sends an Escape key press to the focused element, closing modals.
const PressEscapeScript = `() => {
	const target = document.activeElement || document.body || document;
	const init = { key: 'Escape', code: 'Escape', keyCode: 27, which: 27, bubbles: true };
	target.dispatchEvent(new KeyboardEvent('keydown', init));
	target.dispatchEvent(new KeyboardEvent('keyup', init));
}`
