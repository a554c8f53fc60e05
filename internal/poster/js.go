package poster

// Page-context scripts. Each one is a single function evaluated inside
// the platform's page, mirroring what a content script would do: try an
// ordered selector list, first match wins.

const jsLocate = `(selectors) => {
	for (const sel of selectors) {
		const el = document.querySelector(sel);
		if (el) {
			const disabled = el.disabled === true || el.getAttribute("aria-disabled") === "true";
			return { found: true, selector: sel, enabled: !disabled };
		}
	}
	return { found: false };
}`

const jsClick = `(sel) => {
	const el = document.querySelector(sel);
	if (!el) return { clicked: false, reason: "missing" };
	if (el.disabled === true || el.getAttribute("aria-disabled") === "true") {
		return { clicked: false, reason: "disabled" };
	}
	el.scrollIntoView({ block: "center" });
	el.click();
	return { clicked: true };
}`

// jsInsert clears the editable region, inserts the text, and dispatches
// a synthetic input event so the platform's reactive UI updates its own
// state (e.g. enabling the submit button).
const jsInsert = `(sel, text) => {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.focus();
	if (el.tagName === "TEXTAREA" || el.tagName === "INPUT") {
		el.value = text;
	} else {
		el.innerHTML = "";
		if (!document.execCommand("insertText", false, text)) {
			el.textContent = text;
		}
	}
	el.dispatchEvent(new InputEvent("input", { bubbles: true, data: text, inputType: "insertText" }));
	return true;
}`

const jsFill = `(sel, value) => {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.focus();
	el.value = value;
	el.dispatchEvent(new Event("input", { bubbles: true }));
	el.dispatchEvent(new Event("change", { bubbles: true }));
	return true;
}`
