package sandbox

// bootstrapJS installs the sandbox scope on a fresh runtime: the element
// factory, the require allow-list, element expansion and the console
// bridge. Everything lives under globalThis.__rw; the only other global it
// touches is console.
const bootstrapJS = `
(function() {
	var Fragment = Symbol.for('react.fragment');
	var MAX_DEPTH = 256;

	function createElement(type, config) {
		var props = {};
		if (config) {
			for (var k in config) {
				if (k !== 'key' && k !== 'ref') props[k] = config[k];
			}
		}
		var n = arguments.length - 2;
		if (n === 1) props.children = arguments[2];
		else if (n > 1) props.children = Array.prototype.slice.call(arguments, 2);
		return { type: type, props: props };
	}

	function jsx(type, props) {
		var p = {};
		if (props) {
			for (var k in props) {
				if (k !== 'key' && k !== 'ref') p[k] = props[k];
			}
		}
		return { type: type, props: p };
	}

	function textOf(v) {
		if (v === null || v === undefined || typeof v === 'boolean') return '';
		if (Array.isArray(v)) return v.map(textOf).join('');
		return String(v);
	}

	function expand(v, depth) {
		if (depth > MAX_DEPTH) throw new RangeError('element tree deeper than ' + MAX_DEPTH);
		if (v === null || v === undefined || typeof v === 'boolean') return null;
		if (typeof v === 'string' || typeof v === 'number') return v;
		if (typeof v === 'function') throw new TypeError('functions are not valid as element children');
		if (typeof v.then === 'function') throw new TypeError('async components are not supported');
		if (Array.isArray(v)) {
			var out = [];
			for (var i = 0; i < v.length; i++) out.push(expand(v[i], depth + 1));
			return out;
		}
		if (typeof v !== 'object') return String(v);

		if (v.props !== undefined) {
			var props = v.props || {};
			if (v.type === Fragment) return expand(props.children, depth + 1);
			if (typeof v.type === 'function') return expand(v.type(props), depth + 1);
			if (typeof v.type !== 'string') throw new TypeError('invalid element type: ' + String(v.type));
			var p = {};
			for (var k in props) {
				if (k !== 'children' && typeof props[k] !== 'function') p[k] = props[k];
			}
			if (props.children !== undefined) p.children = expand(props.children, depth + 1);
			return { type: v.type, props: p };
		}

		if (v.type === 'container') {
			var kids = [];
			var src = v.children || [];
			if (!Array.isArray(src)) src = [src];
			for (var j = 0; j < src.length; j++) {
				var c = expand(src[j], depth + 1);
				if (c === null) continue;
				if (typeof c !== 'object') c = { type: 'text', text: String(c) };
				kids.push(c);
			}
			return { type: 'container', style: v.style, children: kids };
		}
		return v;
	}

	var helpers = {
		container: function(props) {
			props = props || {};
			return { type: 'container', style: props.style, children: props.children || [] };
		},
		text: function(text, style) {
			if (text !== null && typeof text === 'object') {
				return { type: 'text', text: textOf(text.text), style: text.style };
			}
			return { type: 'text', text: textOf(text), style: style };
		},
		image: function(src, props) {
			if (src !== null && typeof src === 'object') {
				props = src;
				src = props.src;
			}
			props = props || {};
			return { type: 'image', src: String(src), width: props.width, height: props.height, style: props.style };
		},
		percentage: function(v) { return v + '%'; },
		em: function(v) { return v + 'em'; },
		rgba: function(r, g, b, a) {
			return 'rgba(' + r + ', ' + g + ', ' + b + ', ' + (a === undefined ? 1 : a) + ')';
		},
		fromJsx: function(el) { return expand(el, 0); }
	};

	var jsxRuntime = { jsx: jsx, jsxs: jsx, jsxDEV: jsx, Fragment: Fragment };
	var modules = {
		'react': { createElement: createElement, Fragment: Fragment },
		'react/jsx-runtime': jsxRuntime,
		'react/jsx-dev-runtime': jsxRuntime,
		'takumi-js/helpers': helpers,
		'@takumi-rs/helpers': helpers
	};

	function require(name) {
		if (Object.prototype.hasOwnProperty.call(modules, name)) return modules[name];
		throw new Error("Cannot find module '" + name + "'");
	}

	function format(args) {
		var parts = [];
		for (var i = 0; i < args.length; i++) {
			var a = args[i];
			if (typeof a === 'string') { parts.push(a); continue; }
			try { parts.push(JSON.stringify(a)); } catch (e) { parts.push(String(a)); }
		}
		return parts.join(' ');
	}

	var con = {};
	['log', 'info', 'warn', 'error', 'debug'].forEach(function(lvl) {
		con[lvl] = function() { __rw_console(lvl, format(arguments)); };
	});
	globalThis.console = con;

	function errorMessage(e) {
		if (e && e.name && e.message !== undefined) return e.name + ': ' + e.message;
		return String(e);
	}

	globalThis.__rw = {
		require: require,
		fromJsx: helpers.fromJsx,
		expand: expand,
		errorMessage: errorMessage,
		exports: null,
		state: null,
		result: null
	};
})();
`

// loadJS evaluates the transformed program inside the isolated scope. %s is
// the CommonJS source produced by Transform.
const loadJS = `
(function() {
	var module = { exports: {} };
	(function(exports, require, module, fromJsx) {
%s
	}).call(undefined, module.exports, __rw.require, module, __rw.fromJsx);
	__rw.exports = module.exports;
})();
`

// inspectJS reports the shape of the exports as JSON.
const inspectJS = `
(function() {
	var ex = __rw.exports || {};
	var opts = ex.options;
	var encoded;
	try { encoded = opts === undefined ? 'null' : JSON.stringify(opts); } catch (e) { encoded = 'null'; }
	return JSON.stringify({ callable: typeof ex.default === 'function', options: encoded === undefined ? 'null' : encoded });
})()
`

// invokeJS calls the default export and records the settled, expanded
// element tree in __rw.state / __rw.result.
const invokeJS = `
(function() {
	__rw.state = 'pending';
	__rw.result = null;
	var settle = function(v) {
		try {
			__rw.result = JSON.stringify(__rw.expand(v, 0));
			if (__rw.result === undefined) __rw.result = 'null';
			__rw.state = 'fulfilled';
		} catch (e) {
			__rw.result = __rw.errorMessage(e);
			__rw.state = 'rejected';
		}
	};
	var fail = function(e) {
		__rw.result = __rw.errorMessage(e);
		__rw.state = 'rejected';
	};
	var value;
	try {
		value = __rw.exports.default();
	} catch (e) {
		fail(e);
		return;
	}
	if (value && typeof value.then === 'function') {
		value.then(settle, fail);
	} else {
		settle(value);
	}
})();
`
